// relaywatch — persistent job dispatcher between web-UI producers and the
// worker CLI. Jobs are JSON files in a shared queue directory; the watch
// command runs the supervisor that claims and executes them.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axionhq/relaywatch/internal/config"
	"github.com/axionhq/relaywatch/internal/history"
	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/remote"
	"github.com/axionhq/relaywatch/internal/runner"
	"github.com/axionhq/relaywatch/internal/session"
	"github.com/axionhq/relaywatch/internal/supervisor"
)

// version is set by ldflags at build time.
var version = "dev"

var (
	flagDir      string
	flagProjects string
	flagUser     string
	flagConfig   string
)

func main() {
	root := &cobra.Command{
		Use:   "relaywatch",
		Short: "Job dispatcher and supervisor for the chat relay",
		Long:  "Watches a shared queue directory for job files, runs each under the worker CLI with per-project serialization, and streams output into sidecar files for live polling.",
	}
	root.PersistentFlags().StringVar(&flagDir, "dir", "", "relay base directory (default /opt/clawd/projects/relay)")
	root.PersistentFlags().StringVar(&flagProjects, "projects", "", "projects base directory (default /opt/clawd/projects)")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "relay user (default $RELAY_USER, then axion)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to relaywatch.yaml overrides")

	root.AddCommand(watchCmd(), healthCmd(), sessionsCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveLayout applies flag and environment overrides to the default paths.
func resolveLayout() (layout.Layout, config.Env) {
	lay := layout.DefaultLayout("")
	if flagDir != "" {
		lay.BaseDir = flagDir
	}
	if flagProjects != "" {
		lay.ProjectsBase = flagProjects
	}

	env := config.LoadEnv(lay.BaseDir)
	user := flagUser
	if user == "" {
		user = env.RelayUser
	}
	lay.User = user
	return lay, env
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the supervisor loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			lay, env := resolveLayout()
			if env.RelayPort != "" {
				fmt.Fprintf(os.Stderr, "watcher: relay HTTP port is %s (served elsewhere)\n", env.RelayPort)
			}

			q := queue.New(lay.QueueDir())
			hist := history.NewStore(lay.HistoryDir())
			run := &runner.Runner{
				Queue:    q,
				Layout:   lay,
				Sessions: session.New(lay, "", cfg.SessionCacheTTL),
				History:  hist,
				Remote:   remote.New(q, hist, env, cfg.ActivityUpdateInterval),
				Cfg:      cfg,
			}

			sup := supervisor.New(cfg, lay, q, run)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sup.Run(ctx); err != nil {
				if errors.Is(err, supervisor.ErrAlreadyRunning) {
					fmt.Fprintf(os.Stderr, "%v. Exiting.\n", err)
					os.Exit(1)
				}
				return err
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relaywatch %s\n", version)
		},
	}
}
