package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/domain/cache"
)

var errCacheDisabled = errors.New("composition cache is disabled")

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the composition cache",
	}
	cmd.AddCommand(newCacheInspectCmd(opts), newCacheClearCmd(opts))
	return cmd
}

func newCacheInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the cached module set and whether it is still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			logger, err := opts.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store := app.NewStore(cfg, logger, nil)
			if store == nil {
				return errCacheDisabled
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "cache %s\n", store.Path())

			rec, ok := store.TryLoad()
			if !ok {
				fmt.Fprintln(w, "no usable cache record")
				return nil
			}
			modules, err := app.NewCatalog(cfg, logger, nil, modules()...).Identify(cmd.Context())
			if err != nil {
				return err
			}
			current := cache.Fingerprint(modules)

			fmt.Fprintf(w, "fingerprint %s\n", rec.Fingerprint)
			fmt.Fprintf(w, "valid %t\n", rec.Valid(current))
			fmt.Fprintf(w, "graph %d bytes\n", len(rec.Graph))
			for _, k := range rec.Modules {
				fmt.Fprintf(w, "  %s (%d artifacts)\n", k.Identity, len(k.Hashes))
			}
			return nil
		},
	}
}

func newCacheClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the composition cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			store := app.NewStore(cfg, nil, nil)
			if store == nil {
				return errCacheDisabled
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", store.Path())
			return nil
		},
	}
}
