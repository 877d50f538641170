package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"leadbox/internal/leads"
	"leadbox/internal/store"

	"github.com/spf13/cobra"
)

var (
	leadsKind  string
	leadsLimit int
	leadsJSON  bool
	leadsDB    string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect captured leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent leads",
	Example: `  leadbox leads list
  leadbox leads list --kind demo --limit 50 --json`,
	RunE: runLeadsList,
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsKind, "kind", "", "Only show contact or demo leads")
	leadsListCmd.Flags().IntVarP(&leadsLimit, "limit", "n", 20, "Maximum number of leads to show")
	leadsListCmd.Flags().BoolVar(&leadsJSON, "json", false, "Print JSON instead of a table")
	leadsListCmd.Flags().StringVar(&leadsDB, "db", "", "Path to SQLite database (default: database.path from config)")

	leadsCmd.AddCommand(leadsListCmd)
}

func runLeadsList(cmd *cobra.Command, args []string) error {
	kind, err := leads.ParseKind(leadsKind)
	if err != nil {
		return err
	}
	if leadsLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Database.Path
	if leadsDB != "" {
		path = leadsDB
	}
	if path == "" {
		return fmt.Errorf("no database configured")
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.ListLeads(cmd.Context(), string(kind), leadsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if leadsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	total, err := st.CountLeads(cmd.Context(), string(kind))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKIND\tNAME\tEMAIL\tPHONE\tCOMPANY\tSOURCE")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.CreatedAt.Local().Format(time.DateTime), l.Kind, l.Name, l.Email, l.Phone, l.Company, l.UTMSource)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nShowing %d of %d leads\n", len(list), total)
	return nil
}
