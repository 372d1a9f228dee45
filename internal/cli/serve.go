package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/tabsplit/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the JSON API on server.host:server.port. When auth.secret is set,
every /api route requires a bearer token issued by "tabsplit token".`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)

	opts := api.Options{
		Groups:   a.groups,
		Splits:   a.splits,
		Metrics:  a.metrics,
		Gatherer: a.registry,
		Logger:   a.logger,
	}
	if a.auth != nil {
		opts.Auth = a.auth
	} else {
		a.logger.Warn("auth.secret is not set, the API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return api.NewServer(opts).ListenAndServe(ctx, a.cfg.Addr())
}
