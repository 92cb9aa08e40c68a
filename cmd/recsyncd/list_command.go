package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recsync/internal/recdb"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings known to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := recdb.Open(cfg)
			if err != nil {
				return fmt.Errorf("open recordings store: %w", err)
			}
			defer store.Close()

			recordings, err := store.ListRecordings(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recordings) == 0 {
				fmt.Fprintln(out, "No recordings found.")
				return nil
			}

			rows := make([][]string, 0, len(recordings))
			for _, rec := range recordings {
				if statusFilter != "" && string(rec.Status) != statusFilter {
					continue
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", rec.VideoID),
					rec.Title,
					rec.ChannelName,
					string(rec.Status),
					formatDuration(rec.Duration),
					formatSize(rec.FileSize),
					rec.FilePath,
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Channel", "Status", "Duration", "Size", "Path"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (Recording or Recorded)")
	return cmd
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
