// Command shellgeist is a demo host embedding the shellgeist engine.
// It registers a few example commands and runs them either as an
// interactive shell or as a daemon serving geistctl clients.
// On SIGINT or SIGTERM it stops the engine gracefully.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfulz/shellgeist/engine"
	"github.com/mfulz/shellgeist/internal/config"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	modeFlag   string
	channel    string
	showInfo   bool
)

var rootCmd = &cobra.Command{
	Use:   "shellgeist",
	Short: "Demo host for the shellgeist command shell",
	Long: `shellgeist runs the example commands hello, poke and stats in an
interactive shell or, with --mode daemon, behind an IPC channel that
geistctl connects to.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Init(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mode") {
			cfg.Mode = modeFlag
		}
		if cmd.Flags().Changed("channel") {
			cfg.Channel = channel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to shellgeist.yaml")
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", config.ModeInteractive, "execution mode: interactive or daemon")
	rootCmd.Flags().StringVar(&channel, "channel", "", "daemon channel: socket name, path or tcp://host:port")
	rootCmd.Flags().BoolVar(&showInfo, "info", false, "print version and capabilities before starting")
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(logging.Log),
		engine.WithHistoryLimit(cfg.History.Limit),
		engine.WithGracePeriod(cfg.Daemon.GracePeriod),
		engine.WithDefaultOutput(os.Stdout),
	}
	if cfg.History.File != "" {
		opts = append(opts, engine.WithHistoryStore(cfg.History.File))
	}
	if cfg.Prompt != "" {
		opts = append(opts, engine.WithPrompt(cfg.Prompt))
	}

	e, err := engine.New(cfg.App, opts...)
	if err != nil {
		return nil, err
	}
	if err := registerDemoCommands(e); err != nil {
		e.Destroy()
		return nil, err
	}

	header := cfg.Header
	if header == "" {
		header = defaultHeader(cfg.App)
	}
	if err := e.RegisterHeader(header); err != nil {
		e.Destroy()
		return nil, err
	}

	mode := engine.Interactive
	if cfg.Mode == config.ModeDaemon {
		mode = engine.Daemon
	}
	if err := e.SetExecutionMode(mode, cfg.Channel); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer e.Destroy()

	if showInfo {
		fmt.Printf("API Version: 0x%08X\n", engine.Version())
		fmt.Printf("Capabilities: %s\n", engine.Capabilities())
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return e.Stop()
	})

	g.Go(func() error {
		defer cancel()
		return e.Run(context.Background())
	})

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           e.MetricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logging.Log.Infof("[shellgeist] metrics listening on %s", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
