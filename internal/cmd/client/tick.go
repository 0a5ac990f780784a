package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
)

// NewTickCommand constructs the `tick` command: trigger one scheduling pass.
func NewTickCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one tick on a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, _ := cmd.Flags().GetString("queue")
			var res queue.TickResult
			if err := postJSON(baseURL(), "/v1/tick?queue="+url.QueryEscape(q), struct{}{}, &res); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("tick did not advance: %s", res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringP("queue", "q", "default", "Queue name")
	return cmd
}
