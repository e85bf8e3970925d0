// Command farmctl runs maintenance tasks against the farm database: schema
// migration, summary recalculation and read-only browsing of any resource.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/app"
	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd(os.Stdout, nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// opener builds the application for one command run.
type opener func(ctx context.Context) (*app.App, error)

type cli struct {
	out  io.Writer
	open opener
}

// rootCmd assembles the command tree. A nil open loads the configuration from
// the environment.
func rootCmd(out io.Writer, open opener) *cobra.Command {
	var envFile, logLevel string
	c := &cli{out: out, open: open}

	cmd := &cobra.Command{
		Use:           "farmctl",
		Short:         "Farm maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.open == nil {
				c.open = configOpener(envFile, logLevel)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	cmd.AddCommand(
		c.migrateCmd(),
		c.recalcCmd(),
		c.browseCmd(),
		c.resourcesCmd(),
		c.alertsCmd(),
		c.historyCmd(),
	)
	return cmd
}

func configOpener(envFile, logLevel string) opener {
	return func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if logLevel == "" {
			logLevel = cfg.Log.Level
		}
		base, err := logger.New(logLevel)
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, base.Named("farmctl"))
	}
}

// with opens the application, runs fn and releases the backends.
func (c *cli) with(ctx context.Context, fn func(a *app.App) error) error {
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.Logger.Warn("close backends", zap.Error(err))
		}
	}()
	return fn(a)
}
