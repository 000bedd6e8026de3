package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/patterns/research"
)

func newRunCommand() *cobra.Command {
	var recipient string
	var progress bool

	cmd := &cobra.Command{
		Use:   "run <question>",
		Short: "Research a question and print the final state as JSON",
		Long: `Runs the research workflow once. The final state is printed to stdout
as JSON; with --progress every step is reported on stderr while it runs.

The command exits with status 1 when the run ends in error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer utils.CloseWithLog(application)

			input := research.Input{
				Question:       strings.TrimSpace(strings.Join(args, " ")),
				RecipientEmail: recipient,
			}

			var state research.RunState
			if progress {
				for event := range application.workflow.Stream(cmd.Context(), input) {
					printEvent(cmd.ErrOrStderr(), event)
					if event.Type == graph.EventDone {
						state = event.State
					}
				}
			} else {
				state = application.workflow.Run(cmd.Context(), input)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state); err != nil {
				return fmt.Errorf("encode state: %w", err)
			}

			if state.Failed() {
				return fmt.Errorf("run %s failed: %s", state.RunID, state.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "recipient", "", "e-mail address to notify when the report is ready")
	cmd.Flags().BoolVar(&progress, "progress", false, "report each step on stderr")
	return cmd
}

func printEvent(w io.Writer, event graph.Event[research.RunState]) {
	switch event.Type {
	case graph.EventStepStart:
		fmt.Fprintf(w, "step %d: %s\n", event.Step, strings.Join(event.Nodes, ", "))
	case graph.EventNodeComplete:
		fmt.Fprintf(w, "  %s done in %v\n", event.NodeID, event.Duration.Round(time.Millisecond))
	case graph.EventNodeError:
		fmt.Fprintf(w, "  %s failed: %s\n", event.NodeID, event.Error)
	case graph.EventStepComplete:
		state := event.State
		fmt.Fprintf(w, "  sources=%d iteration=%d confidence=%.2f\n", len(state.Sources), state.Iteration, state.Confidence)
	case graph.EventDone:
		fmt.Fprintf(w, "done: %s\n", event.State.Status)
	}
}
