package commands

import (
	"fmt"
	"os"
	"samtimesheet/internal/components/store"
	"time"

	"github.com/spf13/cobra"
)

var (
	getMonth  string
	getCached bool
	getFormat string
)

func init() {
	getCmd.Flags().StringVarP(&getMonth, "month", "m", "", "The month to retrieve as M/YYYY, defaults to the current month.")
	getCmd.Flags().BoolVar(&getCached, "cached", false, "Only read the local cache, never contact the portal.")
	getCmd.Flags().StringVarP(&getFormat, "format", "f", formatTable, "Output format: table, json or csv.")
	rootCmd.AddCommand(getCmd)
}

// parseMonth reads a "M/YYYY" month key into the first moment of that month.
func parseMonth(value string, loc *time.Location) (time.Time, error) {
	var month, year int
	_, err := fmt.Sscanf(value, "%d/%d", &month, &year)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected M/YYYY: %w", value, err)
	}
	if month < 1 || month > 12 || year < 1000 {
		return time.Time{}, fmt.Errorf("invalid month %q, expected M/YYYY", value)
	}
	parsed := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	padded := fmt.Sprintf("%02d/%04d", month, year)
	if store.MonthKey(parsed) != value && padded != value {
		return time.Time{}, fmt.Errorf("invalid month %q, expected M/YYYY", value)
	}
	return parsed, nil
}

var getCmd = &cobra.Command{
	Use:   "get [--month M/YYYY] [--cached] [--format table|json|csv]",
	Short: "Prints the shifts of a month.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := get(cmd.Context())

		target := value.Time.Now()
		if getMonth != "" {
			parsed, err := parseMonth(getMonth, value.Time.Location())
			if err != nil {
				return err
			}
			target = parsed
		}

		var (
			month store.CachedMonth
			err   error
		)
		if getCached {
			month, err = value.Scraper.GetCached(cmd.Context(), target)
		} else {
			month, err = value.Scraper.Get(cmd.Context(), target)
		}
		if err != nil {
			return err
		}

		return writeMonth(os.Stdout, getFormat, store.MonthKey(target), month)
	},
}
