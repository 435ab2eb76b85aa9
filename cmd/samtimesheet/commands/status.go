package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monthsCmd)
	rootCmd.AddCommand(resetCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the state of the portal session and the cache.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := get(cmd.Context())

		state, err := value.Scraper.State(cmd.Context())
		if err != nil {
			return err
		}
		record, err := value.Storage.Read(cmd.Context())
		if err != nil {
			return err
		}

		expiry := "-"
		if record.Token() != "" {
			expiry = record.Expiry().In(value.Time.Location()).Format(time.DateTime)
		}
		created := record.Created()
		if created == "" {
			created = "-"
		}

		t := newTable(os.Stdout)
		t.AppendRows([]table.Row{
			{"Account", value.Config.Username},
			{"Store", value.Config.Store},
			{"Session", state.String()},
			{"Expires", expiry},
			{"Logged in", created},
			{"Error flag", record.Flagged()},
			{"Cached months", len(record.Months())},
		})
		t.Render()

		if record.Flagged() {
			fmt.Fprintln(os.Stderr, "the password was rejected, fix it in the config and run 'samtimesheet reset'")
		}
		return nil
	},
}

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "Lists the cached months.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := get(cmd.Context())

		record, err := value.Storage.Read(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(os.Stdout)
		t.AppendHeader(table.Row{"Month", "Shifts", "Updated"})
		for _, key := range record.Months() {
			month, _ := record.Month(key)
			t.AppendRow(table.Row{
				key,
				len(month.Parsed),
				month.Updated.In(value.Time.Location()).Format(time.DateTime),
			})
		}
		t.Render()
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clears the error flag set by a rejected password and forgets the session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := get(cmd.Context())

		err := value.Scraper.Reset(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("error flag cleared, the next retrieval will log in again")
		return nil
	},
}
