package main

import (
	"fmt"
	"time"

	"leadbox/internal/trigger"
	"leadbox/pkg/cmdutil"
	"leadbox/pkg/fileutil"

	"github.com/spf13/cobra"
)

var deployForeground bool

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deploy script by hand",
	Long: `Start the deploy script the same way the webhook does: detached, with a
minimal environment, appending to the deployment log.

With --foreground the script runs attached to this terminal instead, with
deploy.foreground_timeout applied, and its output is printed when it ends.`,
	Example: `  leadbox deploy
  leadbox deploy --foreground`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&deployForeground, "foreground", false, "Run synchronously and print the output")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !deployForeground {
		inv, err := trigger.New(cfg.Deploy, trigger.DetachedSpawner{}, consoleLogger()).Fire(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deployment %s started (pid %d)\n", inv.ID, inv.PID)
		fmt.Fprintf(out, "Follow progress with: tail -f %s\n", inv.LogFilePath)
		return nil
	}

	script := cfg.Deploy.ScriptPath()
	if !fileutil.FileExists(script) {
		return fmt.Errorf("%w: %s", trigger.ErrScriptMissing, script)
	}

	cmdParts := append(append([]string{}, cfg.Deploy.ShellArgs...), script)
	fmt.Fprintf(out, "Running %s in %s\n", cmdutil.FormatCommand(cmdParts), cfg.Deploy.ProjectPath)

	result, runErr := cmdutil.Run(cmd.Context(), cmdutil.ExecOptions{
		Dir:     cfg.Deploy.ProjectPath,
		Timeout: time.Duration(cfg.Deploy.ForegroundTimeout) * time.Second,
		Env:     cfg.Deploy.Env(),
	}, cmdParts)

	if result != nil {
		out.Write(cmdutil.SanitizeOutput(result.Output, []string{cfg.Webhook.Secret}))
		fmt.Fprintf(out, "Finished in %s with exit code %d\n", result.Duration.Round(time.Millisecond), result.ExitCode)
	}

	return runErr
}
