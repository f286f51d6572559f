// rotopress automates periodic publication of video content to YouTube for
// multiple independent accounts, rotating through remote content feeds and
// tracking per-account state on disk.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotopress/rotopress/accounts"
	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/common"
	"github.com/rotopress/rotopress/feed"
	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/probe"
	"github.com/rotopress/rotopress/rotation"
	"github.com/rotopress/rotopress/runner"
	"github.com/rotopress/rotopress/selection"
	"github.com/rotopress/rotopress/server"
	"github.com/rotopress/rotopress/state"
	"github.com/rotopress/rotopress/youtube"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// app bundles the wired components shared by the serve and run commands.
type app struct {
	cfg      *common.AppConfig
	accounts *accounts.Store
	runner   *runner.Orchestrator
	server   *server.Server
}

// buildApp wires the full component graph from the loaded configuration.
func buildApp(configPath string, debug bool) (*app, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	common.SetupLogging(cfg.Debug)

	store, err := state.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	feeds := feed.NewClient(cfg.FeedTimeout, cfg.DownloadTimeout)
	prober := probe.New(cfg.ProbeTimeout)
	authManager := auth.NewManager()

	sel := selection.NewEngine(feeds, prober, store)
	rot := rotation.NewEngine(feeds, store)
	publisher := youtube.NewService(authManager)
	orch := runner.NewOrchestrator(sel, rot, store, authManager, publisher, feeds)
	acctStore := accounts.NewStore(cfg.AccountsFile)

	return &app{
		cfg:      cfg,
		accounts: acctStore,
		runner:   orch,
		server:   server.New(cfg, acctStore, store, sel, orch, authManager, publisher),
	}, nil
}

func main() {
	var (
		configPath string
		debug      bool
		parallel   bool
	)

	rootCmd := &cobra.Command{
		Use:   "rotopress",
		Short: "Rotating content publisher for YouTube accounts",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default rotopress.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath, debug)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.server.ListenAndServe(ctx)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Publish the next item for every configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath, debug)
			if err != nil {
				return err
			}
			return a.runAll(cmd.Context(), parallel)
		},
	}
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "Run accounts concurrently")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the rotopress version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rotopress %s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// runAll executes one publish run per configured account, sequentially by
// default or concurrently with --parallel. Different accounts share no
// mutable state beyond the filesystem, so parallel runs are safe.
func (a *app) runAll(ctx context.Context, parallel bool) error {
	accts, err := a.accounts.List()
	if err != nil {
		return err
	}
	if len(accts) == 0 {
		log.Info().Msg("No accounts configured")
		return nil
	}

	runOne := func(acct model.Account) {
		log.Info().Str("account", acct.StatePrefix).Str("name", acct.Name).Msg("Running account")
		if err := a.runner.Run(ctx, acct); err != nil {
			log.Error().Err(err).Str("account", acct.StatePrefix).Msg("Account run failed")
		}
	}

	if parallel {
		var g errgroup.Group
		for _, acct := range accts {
			g.Go(func() error {
				runOne(acct)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, acct := range accts {
			runOne(acct)
		}
	}

	log.Info().Msg("All accounts processed")
	return nil
}
