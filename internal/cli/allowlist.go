package cli

import (
	"encoding/json"
	"fmt"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage trusted domains",
	Long:  "List, add or remove domains that are always reported as safe for the current user.",
}

var allowlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and user-trusted domains",
	Args:  cobra.NoArgs,
	RunE:  runAllowlistList,
}

var allowlistAddCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Trust a domain and its subdomains",
	Args:  cobra.ExactArgs(1),
	RunE:  runAllowlistAdd,
}

var allowlistRemoveCmd = &cobra.Command{
	Use:     "remove <domain>",
	Aliases: []string{"rm"},
	Short:   "Stop trusting a domain",
	Args:    cobra.ExactArgs(1),
	RunE:    runAllowlistRemove,
}

func init() {
	allowlistCmd.AddCommand(allowlistListCmd, allowlistAddCmd, allowlistRemoveCmd)
	rootCmd.AddCommand(allowlistCmd)
}

func runAllowlistList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		entries, err := a.allowlist.Entries(cmd.Context(), appConfig.User)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputFlag == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Domain", "Source", "Added"})
		table.SetBorder(false)
		table.SetColumnSeparator("│")
		for _, e := range entries {
			table.Append([]string{e.Domain, entrySource(e), entryAdded(e)})
		}
		table.Render()
		return nil
	})
}

func entrySource(e types.AllowlistEntry) string {
	if e.UserAdded {
		return "user"
	}
	return "built-in"
}

func entryAdded(e types.AllowlistEntry) string {
	if e.AddedAt.IsZero() {
		return "-"
	}
	return e.AddedAt.Local().Format("2006-01-02 15:04")
}

func runAllowlistAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		entry, err := a.allowlist.Add(cmd.Context(), appConfig.User, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Trusted %s\n", entry.Domain)
		return nil
	})
}

func runAllowlistRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.allowlist.Remove(cmd.Context(), appConfig.User, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})
}
