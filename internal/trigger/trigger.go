// Package trigger launches the project's deploy script as a detached
// process that outlives the request which started it.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"leadbox/internal/config"
	"leadbox/internal/security"
	"leadbox/pkg/cmdutil"
	"leadbox/pkg/fileutil"
	"leadbox/pkg/templates"

	"github.com/google/uuid"
)

// ErrScriptMissing is returned by Fire when the deploy script does not exist.
var ErrScriptMissing = errors.New("deploy script not found")

// SpawnSpec describes a process to start without waiting for it.
type SpawnSpec struct {
	Args    []string
	Dir     string
	Env     []string
	LogFile string
}

// Spawner starts a process and gives up ownership of it. The returned PID is
// informational only.
type Spawner interface {
	Spawn(spec SpawnSpec) (int, error)
}

// Invocation records one launched deployment.
type Invocation struct {
	ID          string    `json:"id"`
	ProjectPath string    `json:"project_path"`
	WrapperPath string    `json:"wrapper_path"`
	LogFilePath string    `json:"log_file_path"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
}

// Trigger writes a per-invocation wrapper script and hands it to a Spawner.
type Trigger struct {
	cfg     config.DeployConfig
	spawner Spawner
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Trigger for the given deploy configuration.
func New(cfg config.DeployConfig, spawner Spawner, logger *slog.Logger) *Trigger {
	return &Trigger{
		cfg:     cfg,
		spawner: spawner,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// ProjectPath is the directory deployments run in.
func (t *Trigger) ProjectPath() string {
	return t.cfg.ProjectPath
}

// LogFilePath is the append-only log every deployment writes to.
func (t *Trigger) LogFilePath() string {
	return t.cfg.LogFilePath()
}

// Fire launches the deploy script and returns as soon as the process has
// been started. It never waits for the deployment to finish.
func (t *Trigger) Fire(ctx context.Context) (*Invocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scriptPath := t.cfg.ScriptPath()
	if !fileutil.FileExists(scriptPath) {
		t.logger.Warn("Deploy script missing, not triggering deployment", "script", scriptPath)
		return nil, fmt.Errorf("%w: %s", ErrScriptMissing, scriptPath)
	}

	inv := &Invocation{
		ID:          t.newID(),
		ProjectPath: t.cfg.ProjectPath,
		LogFilePath: t.cfg.LogFilePath(),
	}
	inv.WrapperPath = filepath.Join(t.cfg.WrapperDirPath(), templates.DeployWrapper+"-"+inv.ID+".sh")

	if err := security.CreateSecureDir(filepath.Dir(inv.LogFilePath), security.PermDirectory); err != nil {
		return nil, t.fail(inv, fmt.Errorf("failed to prepare log directory: %w", err))
	}
	if err := security.CreateSecureDir(t.cfg.WrapperDirPath(), security.PermDirectory); err != nil {
		return nil, t.fail(inv, fmt.Errorf("failed to prepare wrapper directory: %w", err))
	}

	script, err := templates.RenderNamed(templates.DeployWrapper, t.wrapperData(inv.ID, scriptPath, inv.LogFilePath))
	if err != nil {
		return nil, t.fail(inv, fmt.Errorf("failed to render wrapper: %w", err))
	}

	if err := security.WriteSecureFile(inv.WrapperPath, []byte(script), security.PermExecutable); err != nil {
		return nil, t.fail(inv, fmt.Errorf("failed to write wrapper: %w", err))
	}

	args := append(append([]string{}, t.cfg.ShellArgs...), inv.WrapperPath)
	pid, err := t.spawner.Spawn(SpawnSpec{
		Args:    args,
		Dir:     t.cfg.ProjectPath,
		Env:     t.cfg.Env(),
		LogFile: inv.LogFilePath,
	})
	if err != nil {
		// The wrapper only removes itself once it has run.
		os.Remove(inv.WrapperPath)
		return nil, t.fail(inv, fmt.Errorf("failed to spawn deployment: %w", err))
	}

	inv.PID = pid
	inv.StartedAt = t.now().UTC()

	t.logger.Info("Deployment triggered",
		"invocation", inv.ID,
		"pid", inv.PID,
		"command", cmdutil.FormatCommand(args),
		"log_file", inv.LogFilePath)

	return inv, nil
}

func (t *Trigger) fail(inv *Invocation, err error) error {
	t.logger.Error("Deployment trigger failed", "invocation", inv.ID, "error", err)
	return err
}

func (t *Trigger) wrapperData(id, scriptPath, logFile string) templates.TemplateData {
	return templates.TemplateData{
		"INVOCATION_ID": id,
		"PROJECT_PATH":  cmdutil.Quote(t.cfg.ProjectPath),
		"HOME":          cmdutil.Quote(t.cfg.Home),
		"USER":          cmdutil.Quote(t.cfg.User),
		"PATH":          cmdutil.Quote(t.cfg.Path),
		"LOG_FILE":      cmdutil.Quote(logFile),
		"SHELL":         cmdutil.QuoteArgs(t.cfg.ShellArgs),
		"DEPLOY_SCRIPT": cmdutil.Quote(scriptPath),
	}
}
