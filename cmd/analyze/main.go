package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medscan-backend/internal/bootstrap"
	"medscan-backend/internal/reports"
	"medscan-backend/internal/shared/config"
)

func main() {
	if err := newRootCmd(buildService).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serviceBuilder constructs the report pipeline the commands run against.
type serviceBuilder func(ctx context.Context) (*reports.Service, error)

func newRootCmd(build serviceBuilder) *cobra.Command {
	root := &cobra.Command{
		Use:           "analyze",
		Short:         "Generate medical image reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd(build))
	return root
}

func buildService(ctx context.Context) (*reports.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// History lives only for this invocation.
	cfg.DatabaseURL = ""
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app.ReportsService, nil
}
