package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the tickq client.
// It registers the tick, queue, and history command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "tickq",
		Short: "tickq client commands",
	}
	root.AddCommand(NewTickCommand(baseURL))
	root.AddCommand(NewQueueCommand(baseURL))
	root.AddCommand(NewHistoryCommand(baseURL))
	return root
}
