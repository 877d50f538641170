package main

import (
	"fmt"
	"os"

	"leadbox/internal/githook"
	"leadbox/internal/security"

	"github.com/spf13/cobra"
)

var (
	hookRepo  string
	hookURL   string
	hookToken string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the GitHub deployment webhook",
}

var hookRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create the push webhook on GitHub if it does not exist",
	Long: `Create an active push webhook on the repository, pointing at this
server's /webhook endpoint and signed with webhook.secret.

Nothing is changed when a webhook with the same URL already exists. The token
needs the admin:repo_hook scope.`,
	Example: `  GITHUB_TOKEN=ghp_... leadbox hook register --repo acme/marketing-site`,
	RunE: runHookRegister,
}

func init() {
	hookRegisterCmd.Flags().StringVar(&hookRepo, "repo", "", "GitHub repository (owner/repo)")
	hookRegisterCmd.Flags().StringVar(&hookURL, "url", "", "Webhook URL (default: site.base_url + /webhook)")
	hookRegisterCmd.Flags().StringVar(&hookToken, "token", os.Getenv("GITHUB_TOKEN"), "GitHub token (default: $GITHUB_TOKEN)")
	hookRegisterCmd.MarkFlagRequired("repo")

	hookCmd.AddCommand(hookRegisterCmd)
}

func runHookRegister(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if err := security.ValidateOwnerRepo(hookRepo); err != nil {
		return err
	}

	url := hookURL
	if url == "" {
		url = cfg.Site.BaseURL + "/webhook"
	}

	if cfg.Webhook.Secret == "" {
		suggestion, err := security.GenerateSecret()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Warning: webhook.secret is not set, the hook will be created without a signature.")
		fmt.Fprintf(out, "Set LEADBOX_WEBHOOK_SECRET or webhook.secret to a value such as:\n  %s\n", suggestion)
	}

	client, err := githook.NewClient(cmd.Context(), hookToken)
	if err != nil {
		return err
	}

	res, err := githook.Register(cmd.Context(), client, hookRepo, url, cfg.Webhook.Secret)
	if err != nil {
		return err
	}

	switch res.Status {
	case githook.StatusExists:
		fmt.Fprintf(out, "Webhook already exists on %s (id %d): %s\n", hookRepo, res.HookID, res.URL)
	default:
		fmt.Fprintf(out, "Created webhook on %s (id %d): %s\n", hookRepo, res.HookID, res.URL)
	}
	return nil
}
