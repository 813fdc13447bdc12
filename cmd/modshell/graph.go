package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/domain/graph"
)

type graphView struct {
	Build graph.BuildInfo `json:"build"`
	Order []string        `json:"order"`
	Edges []graph.Edge    `json:"edges"`
}

func newGraphCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Resolve and print the composition graph",
		Long: `Resolve the composition graph the shell would start with, through the
cache, without constructing any part. Parts are listed in construction
order with their bound requirements.`,
		Args: cobra.NoArgs,
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

			cat := app.NewCatalog(cfg, logger, nil, modules()...)
			g, info, err := graph.NewBuilder(cat, app.NewStore(cfg, logger, nil), logger, nil).Build(cmd.Context())
			if err != nil {
				return err
			}
			order, err := g.EagerOrder()
			if err != nil {
				return err
			}

			if asJSON {
				data, err := sonic.ConfigStd.MarshalIndent(graphView{Build: info, Order: order, Edges: g.Edges()}, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			printGraph(cmd.OutOrStdout(), g, info, order)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printGraph(w io.Writer, g *graph.Graph, info graph.BuildInfo, order []string) {
	fmt.Fprintf(w, "fingerprint %s (cache hit: %t)\n", info.Fingerprint, info.CacheHit)
	fmt.Fprintf(w, "%d modules, %d parts\n\n", info.Modules, info.Parts)

	from := make(map[string][]graph.Edge)
	for _, e := range g.Edges() {
		from[e.From] = append(from[e.From], e)
	}
	for _, id := range order {
		p, _ := g.Part(id)
		fmt.Fprintf(w, "%s [%s]", p.ID, p.Module)
		if p.Metadata.Stage != "" {
			fmt.Fprintf(w, " stage=%s", p.Metadata.Stage)
		}
		if len(p.Contracts) > 0 {
			fmt.Fprintf(w, " provides=%s", strings.Join(p.Contracts, ","))
		}
		fmt.Fprintln(w)
		for _, e := range from[id] {
			arrow := "->"
			if e.Kind == graph.EdgeLazy {
				arrow = "~>"
			}
			fmt.Fprintf(w, "  %s %s (%s, %s)\n", arrow, e.To, e.Requirement.Contract, e.Requirement.Cardinality)
		}
	}
}
