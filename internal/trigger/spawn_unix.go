//go:build unix

package trigger

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"leadbox/internal/security"
)

// DetachedSpawner starts processes in a new session with stdin on /dev/null
// and stdout/stderr appended to the spec's log file, then releases them.
//
// Released children are not reaped by this process. They remain zombies
// until the server exits, which a self-deploy normally causes.
type DetachedSpawner struct{}

// Spawn implements Spawner.
func (DetachedSpawner) Spawn(spec SpawnSpec) (int, error) {
	if len(spec.Args) == 0 {
		return 0, fmt.Errorf("empty command")
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	logFile, err := security.OpenAppendFile(spec.LogFile, security.PermLogFile)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = devNull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", spec.Args[0], err)
	}

	pid := cmd.Process.Pid
	// The process is running either way; a release error only leaks the handle.
	_ = cmd.Process.Release()

	return pid, nil
}
