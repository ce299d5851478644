package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) stateCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "state <workflow>",
		Short: "Print the latest checkpointed state of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(args[0])
			if err != nil {
				return err
			}
			store, err := a.checkpoints(cmd.Context())
			if err != nil {
				return err
			}

			snap, err := wf.State(cmd.Context(), store, threadID)
			if err != nil {
				return fmt.Errorf("load thread %s: %w", threadID, err)
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func (a *app) threadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List threads in the checkpoint store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.checkpoints(cmd.Context())
			if err != nil {
				return err
			}
			threads, err := store.Threads(cmd.Context())
			if err != nil {
				return fmt.Errorf("list threads: %w", err)
			}
			if len(threads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No threads found.")
				return nil
			}
			for _, t := range threads {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}
