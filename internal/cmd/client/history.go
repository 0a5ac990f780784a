package client

import (
	"encoding/csv"
	"net/url"

	"github.com/spf13/cobra"
)

// NewHistoryCommand constructs the `history` command: dump the archived
// ledger as JSON or CSV.
func NewHistoryCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the queue's archived job history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, _ := cmd.Flags().GetString("queue")
			asCSV, _ := cmd.Flags().GetBool("csv")

			var out struct {
				Columns []string            `json:"columns"`
				Rows    []map[string]string `json:"rows"`
			}
			if err := getJSON(baseURL(), "/v1/history?queue="+url.QueryEscape(q), &out); err != nil {
				return err
			}
			if !asCSV {
				return printJSON(cmd.OutOrStdout(), out)
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(out.Columns); err != nil {
				return err
			}
			for _, row := range out.Rows {
				record := make([]string, len(out.Columns))
				for i, col := range out.Columns {
					record[i] = row[col]
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}
	cmd.Flags().StringP("queue", "q", "default", "Queue name")
	cmd.Flags().Bool("csv", false, "Emit CSV instead of JSON")
	return cmd
}
