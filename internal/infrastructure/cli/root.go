// Package cli exposes the prompt pipeline as cobra commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptmate/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// NewRootCmd wires the cobra root command. The returned func releases the
// container and must be called once the command has run.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, func() error, error) {
	container, err := app.BuildContainer(ctx, app.Options{ConfigPath: opts.ConfigPath, Verbose: opts.Verbose})
	if err != nil {
		return nil, nil, err
	}

	askCmd := newAskCommand(container)

	root := &cobra.Command{
		Use:   "promptmate [request]",
		Short: "PromptMate - prompt engineering assistant",
		Long:  "PromptMate parses a request, asks for missing context, synthesizes a structured prompt and routes it to the best available model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			askCmd.SetArgs(args)
			return askCmd.ExecuteContext(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(askCmd)
	root.AddCommand(newParseCommand(container))
	root.AddCommand(newQuestionsCommand(container))
	root.AddCommand(newSynthesizeCommand(container))
	root.AddCommand(newRouteCommand(container))
	root.AddCommand(newProvidersCommand(container))
	root.AddCommand(newMemoryCommand(container))
	root.AddCommand(newSessionCommand(container))
	root.AddCommand(newHistoryCommand(container))
	root.AddCommand(newInstructionsCommand(container))
	root.AddCommand(newConfigCommand(container))
	root.AddCommand(newDoctorCommand(container))
	return root, container.Close, nil
}
