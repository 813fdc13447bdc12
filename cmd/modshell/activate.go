package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/modshell/internal/api/client"
	"github.com/GriffinCanCode/modshell/internal/domain/activation"
)

func newActivateCmd(opts *options) *cobra.Command {
	var uri string
	cmd := &cobra.Command{
		Use:   "activate [files...]",
		Short: "Send an activation to the running shell",
		Long: `Send a file, protocol or launch activation to a shell serving the
diagnostics API. Fails when no shell is running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			e := initialEvent(args)
			if uri != "" {
				e = activation.NewEvent(activation.KindProtocol, args...)
				e.URI = uri
			}

			res, err := client.New(baseURL(cfg)).Forward(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s handled=%t\n", res.EventID, res.Handled)
			return nil
		},
	}
	cmd.Flags().StringVar(&uri, "uri", "", "send a protocol activation for this URI")
	return cmd
}
