// deepresearch answers research questions: it retrieves sources, drafts a
// report, stores it and tells the recipient where to find it.
//
// Usage:
//
//	deepresearch run "What changed in Go 1.25?" [--recipient=ada@example.com] [--progress]
//	deepresearch serve [--addr=:8080]
//
// Every command accepts --config=<file.yaml>; see internal/config for the
// environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "deepresearch",
		Short:         "Automated research reports",
		Long:          "deepresearch searches the web for a question, drafts a cited report\nwith an LLM, stores it and notifies the requester.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
