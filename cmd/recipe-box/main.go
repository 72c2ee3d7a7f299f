// Command recipe-box manages recipes, the meal plan and the shopping list
// from the terminal, and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipe-box/internal/app"
	"recipe-box/internal/config"
	"recipe-box/internal/logging"
)

// cli carries what PersistentPreRunE builds to the subcommands.
type cli struct {
	planID   string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.planID != "" {
		cfg.PlanID = c.planID
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.cfg, c.logger, c.app = cfg, logger, a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.logger.Warn("Failed to close app", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "recipe-box",
		Short: "Plan meals and keep one shopping list for them",
		Long: `recipe-box keeps a recipe library, a meal plan and a shopping list.

Adding a recipe to the plan puts its ingredients on the list, merged with
what is already there; removing it takes them off again.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
	}
	root.PersistentFlags().StringVar(&c.planID, "plan", "", "Meal plan id (default: PLAN_ID)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (default: LOG_LEVEL)")

	root.AddCommand(newRecipeCmd(c))
	root.AddCommand(newPlanCmd(c))
	root.AddCommand(newListCmd(c))
	root.AddCommand(newServeCmd(c))
	root.AddCommand(newMetricsCmd(c))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
