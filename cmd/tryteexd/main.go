// Command tryteexd is the FastCGI application server, grounded on
// original_source's sys/init.rs AppAction verb set (start/go/stop/help) and
// sys/help.rs's usage banner, wired through github.com/spf13/cobra in place
// of init.rs's hand-rolled args() parser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tryteex/fcgiapp/internal/config"
	"github.com/tryteex/fcgiapp/internal/control"
	"github.com/tryteex/fcgiapp/internal/logging"
	"github.com/tryteex/fcgiapp/internal/server"
)

// version is set via -ldflags at build time, matching init.rs's
// env!("CARGO_PKG_VERSION").
var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir, logLevel string

	root := &cobra.Command{
		Use:   "tryteexd",
		Short: "TryTeex is a high-speed FastCGI server for WEB applications.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "startup directory (defaults to the working directory)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		goCmd(&dir, &logLevel),
		startCmd(&dir, &logLevel),
		stopCmd(&dir),
	)
	return root
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// goCmd runs the server in the foreground: acceptors, dispatcher and
// control listener all in this process, matching original_source's
// AppAction::Go (what AppAction::Start re-execs into).
func goCmd(dir, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "go",
		Short: "run the server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDir(*dir)
			if err != nil {
				return err
			}
			log := logging.New(*logLevel, d)
			cfg, err := config.Load(d, version)
			if err != nil {
				log.Fatal("startup: load config", "error", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv, err := server.New(ctx, cfg, log.Logger)
			if err != nil {
				log.Fatal("startup: build server", "error", err)
			}
			log.Info("tryteexd starting", "version", version, "dir", d)
			srv.Run(ctx)
			log.Info("tryteexd stopped")
			return nil
		},
	}
}

// startCmd is the user-facing entry point. A double-forked Unix daemon is
// not an idiomatic Go deployment shape (the ecosystem convention is "run it
// under a supervisor" — systemd, a container runtime, etc.), so unlike the
// original's Start/Go split this runs the same foreground server as `go`;
// the two verbs are kept distinct to preserve the original's CLI surface.
func startCmd(dir, logLevel *string) *cobra.Command {
	cmd := goCmd(dir, logLevel)
	cmd.Use = "start"
	cmd.Short = "start the server"
	return cmd
}

// stopCmd sends "stop" over the loopback control channel, matching
// App::stop in sys/app.rs.
func stopCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "stop a running server without killing in-flight requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDir(*dir)
			if err != nil {
				return err
			}
			cfg, err := config.Load(d, version)
			if err != nil {
				return fmt.Errorf("stop: load config: %w", err)
			}
			if _, err := control.Send(cfg.Control, "stop", ""); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
			fmt.Println("server stopped")
			return nil
		},
	}
}
