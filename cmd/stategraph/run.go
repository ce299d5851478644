package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func (a *app) runCmd() *cobra.Command {
	var input, threadID string

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow and print its final state",
		Long: `Run decodes --input (a JSON object) into the workflow state and runs
the graph on a checkpointed thread. Loose values are accepted, so
{"priority": "1"} fills an integer field.

A new thread ID is generated when --thread is not set. Running again on an
existing thread continues the conversation stored there.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(args[0])
			if err != nil {
				return err
			}

			values := map[string]any{}
			if input != "" {
				if err := json.Unmarshal([]byte(input), &values); err != nil {
					return fmt.Errorf("parse --input: %w", err)
				}
			}
			if threadID == "" {
				threadID = uuid.NewString()
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()
			store, err := a.checkpoints(ctx)
			if err != nil {
				return err
			}

			out, err := wf.Run(ctx, values, a.runOptions(store, threadID)...)
			return a.report(cmd.OutOrStdout(), wf.Name(), threadID, out, err)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "initial state as a JSON object")
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID for checkpoints")
	return cmd
}

func (a *app) resumeCmd() *cobra.Command {
	var threadID, value, gotoNode string

	cmd := &cobra.Command{
		Use:   "resume <workflow>",
		Short: "Resume an interrupted thread",
		Long: `Resume continues a thread from its latest checkpoint. --value answers
the pending interrupt; it is parsed as JSON when possible (true, 42,
{"a":1}) and used as a plain string otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.workflow(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()
			store, err := a.checkpoints(ctx)
			if err != nil {
				return err
			}

			opts := []stategraph.ResumeOption{stategraph.WithRunOptions(a.runOptions(store, threadID)...)}
			if cmd.Flags().Changed("value") {
				opts = append(opts, stategraph.WithResumeValue(parseValue(value)))
			}
			if gotoNode != "" {
				opts = append(opts, stategraph.WithResumeGoto(gotoNode))
			}

			out, err := wf.Resume(ctx, store, threadID, opts...)
			return a.report(cmd.OutOrStdout(), wf.Name(), threadID, out, err)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID to resume")
	cmd.Flags().StringVar(&value, "value", "", "answer to the pending interrupt")
	cmd.Flags().StringVar(&gotoNode, "goto", "", "continue at this node instead of the checkpointed one")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func (a *app) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.settings.Timeout > 0 {
		return context.WithTimeout(ctx, a.settings.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) runOptions(store checkpoint.Store, threadID string) []stategraph.RunOption {
	opts := []stategraph.RunOption{
		stategraph.WithCheckpointing(store),
		stategraph.WithThreadID(threadID),
		stategraph.WithSerializer(a.serializer),
		stategraph.WithMaxIterations(a.settings.MaxIterations),
		stategraph.WithObservabilityLogger(a.logger),
	}
	if a.metrics != nil {
		opts = append(opts, stategraph.WithMetricsRecorder(a.metrics.recorder))
	}
	return opts
}

// report prints the final state, or the pending interrupt when the run
// suspended. An interrupt is not a failure.
func (a *app) report(w io.Writer, workflow, threadID string, out any, err error) error {
	var ie *stategraph.InterruptError
	if errors.As(err, &ie) {
		if err := writeJSON(w, interruptReport{
			Workflow:   workflow,
			ThreadID:   threadID,
			NodeID:     ie.NodeID,
			Interrupts: ie.Interrupts,
		}); err != nil {
			return err
		}
		a.logger.Info("run interrupted, continue with resume", "workflow", workflow, "thread_id", threadID, "node_id", ie.NodeID)
		return nil
	}
	if err != nil {
		return err
	}
	return writeJSON(w, out)
}

type interruptReport struct {
	Workflow   string                 `json:"workflow"`
	ThreadID   string                 `json:"thread_id"`
	NodeID     string                 `json:"interrupted_at"`
	Interrupts []checkpoint.Interrupt `json:"interrupts"`
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
