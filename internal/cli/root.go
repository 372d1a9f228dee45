// Package cli implements the tabsplit command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mmynk/tabsplit/internal/auth"
	"github.com/mmynk/tabsplit/internal/config"
	"github.com/mmynk/tabsplit/internal/lifecycle"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/service"
	"github.com/mmynk/tabsplit/internal/storage/sqlite"
	"github.com/mmynk/tabsplit/internal/summary"
	"github.com/mmynk/tabsplit/pkg/logging"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *sqlite.SQLiteStore
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	groups   *service.GroupService
	splits   *service.SplitService
	auth     *service.AuthService
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// NewRootCmd builds the tabsplit command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabsplit",
		Short: "Split restaurant and bar tabs between friends",
		Long: `tabsplit records what a group ordered, who shared each item and how
much tip to add, then tells everyone what they owe.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupApp,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML config file (default $TABSPLIT_CONFIG_PATH)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newGroupCmd())
	root.AddCommand(newItemCmd())
	return root
}

// Execute runs the CLI with ctx.
func Execute(ctx context.Context) error {
	_, err := execute(ctx, NewRootCmd())
	return err
}

// execute runs root and closes the store opened for the executed command,
// whether or not the command failed.
func execute(ctx context.Context, root *cobra.Command) (*cobra.Command, error) {
	cmd, err := root.ExecuteContextC(ctx)
	if a := appFrom(cmd); a != nil {
		if closeErr := a.store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", closeErr)
		}
	}
	return cmd, err
}

func setupApp(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("Storage initialized", "database", cfg.DB.Path)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	groups := service.NewGroupService(store, lifecycle.NewManager(), m, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		metrics:  m,
		groups:   groups,
		splits:   service.NewSplitService(groups, shareFormat(cfg.Share), cfg.Share.TipLabel),
	}
	if cfg.Auth.Secret != "" {
		a.auth = service.NewAuthService(auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenTTL), logger)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey{}, a))
	return nil
}

func shareFormat(c config.ShareConfig) summary.Format {
	return summary.Format{
		Title:              c.Title,
		CurrencySymbol:     c.CurrencySymbol,
		DecimalSeparator:   c.DecimalSeparator,
		ThousandsSeparator: c.ThousandsSeparator,
	}
}
