package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivana-meshed/mmm-app-sub001/internal/queue"
)

// NewQueueCommand constructs the `queue` command group.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	queueCmd := &cobra.Command{Use: "queue", Short: "Queue operations"}
	queueCmd.PersistentFlags().StringP("queue", "q", "default", "Queue name")

	queueCmd.AddCommand(
		newQueueEnqueueCommand(baseURL),
		newQueueListCommand(baseURL),
		newQueueEntriesCommand(baseURL),
		newQueuePauseCommand(baseURL),
		newQueueResumeCommand(baseURL),
		newQueueRemoveCommand(baseURL),
	)
	return queueCmd
}

func queueFlag(cmd *cobra.Command) string {
	q, _ := cmd.Flags().GetString("queue")
	return q
}

func newQueueEnqueueCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Append a pending job entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paramsArg, _ := cmd.Flags().GetString("params")
			paramsFile, _ := cmd.Flags().GetString("params-file")
			if paramsFile != "" {
				b, err := os.ReadFile(paramsFile)
				if err != nil {
					return err
				}
				paramsArg = string(b)
			}
			if paramsArg == "" {
				return fmt.Errorf("provide --params or --params-file")
			}

			var ent queue.JobEntry
			body := map[string]any{"queue": queueFlag(cmd), "params": json.RawMessage(paramsArg)}
			if err := postJSON(baseURL(), "/v1/queues/enqueue", body, &ent); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ent)
		},
	}
	cmd.Flags().String("params", "", "Job params as inline JSON")
	cmd.Flags().String("params-file", "", "Path to a JSON file with job params")
	return cmd
}

func newQueueListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the queue document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var doc queue.Document
			if err := getJSON(baseURL(), "/v1/queues?queue="+url.QueryEscape(queueFlag(cmd)), &doc); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newQueueEntriesCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List entries, optionally filtered by a CEL expression",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			path := "/v1/queues/entries?queue=" + url.QueryEscape(queueFlag(cmd))
			if filter != "" {
				path += "&filter=" + url.QueryEscape(filter)
			}
			var out struct {
				Entries []*queue.JobEntry `json:"entries"`
			}
			if err := getJSON(baseURL(), path, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Entries)
		},
	}
	cmd.Flags().String("filter", "", `CEL filter, e.g. status == "PENDING"`)
	return cmd
}

func newQueuePauseCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause leasing on the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return postJSON(baseURL(), "/v1/queues/pause", map[string]string{"queue": queueFlag(cmd)}, nil)
		},
	}
}

func newQueueResumeCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume leasing on the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return postJSON(baseURL(), "/v1/queues/resume", map[string]string{"queue": queueFlag(cmd)}, nil)
		},
	}
}

func newQueueRemoveCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a non-active entry by id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetInt64("id")
			if id == 0 {
				return fmt.Errorf("provide --id")
			}
			body := map[string]any{"queue": queueFlag(cmd), "id": id}
			return postJSON(baseURL(), "/v1/queues/remove", body, nil)
		},
	}
	cmd.Flags().Int64("id", 0, "Entry id")
	return cmd
}
