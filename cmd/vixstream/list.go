package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known tasks and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range sharedApp.scheduler.List() {
				size := "?"
				if t.TotalB > 0 {
					size = humanize.Bytes(uint64(t.TotalB))
				}
				fmt.Printf("%s\t%s\t%.1f%%\t%s\t%s\t%s\n", t.ID, t.Status, t.Progress, t.ContentID, humanize.Bytes(uint64(t.DownloadedB)), size)
			}
			return nil
		},
	}
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a task by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sharedApp.scheduler.Cancel(args[0])
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed/failed/cancelled tasks from memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			n := sharedApp.scheduler.ClearCompleted()
			fmt.Printf("removed %d task(s)\n", n)
			return nil
		},
	}
}
