package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/clerb/internal/adapters/repository"
	"github.com/okian/clerb/internal/config"
	"github.com/okian/clerb/internal/seeding"
	"github.com/okian/clerb/pkg/logger"
)

// clientFlags are shared by the commands that talk to a running server.
type clientFlags struct {
	url     string
	timeout time.Duration
	workers int
	verbose bool
}

func (f *clientFlags) config() seeding.Config {
	return seeding.Config{
		BaseURL: f.url,
		Timeout: f.timeout,
		Workers: f.workers,
		Verbose: f.verbose,
	}
}

func newRootCmd() *cobra.Command {
	flags := &clientFlags{}
	root := &cobra.Command{
		Use:           "clerbctl",
		Short:         "Administer a clerb book club server",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.verbose {
				return logger.SetLevelString("debug")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.url, "url", "http://localhost:9080", "base URL of the server")
	pf.DurationVar(&flags.timeout, "timeout", seeding.DefaultTimeout, "HTTP request timeout")
	pf.IntVar(&flags.workers, "workers", runtime.NumCPU()*2, "concurrent requests")
	pf.BoolVar(&flags.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(flags),
		newVerifyCmd(flags),
		newStatsCmd(flags),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			db, err := repository.Open(ctx, cfg.DatabaseType, repository.DialectConfig{
				Path: cfg.DatabasePath,
				URL:  cfg.DatabaseURL,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

func newSeedCmd(flags *clientFlags) *cobra.Command {
	var (
		members int
		books   int
		hidden  bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create sample members, completed books and ratings over the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.config()
			cfg.Members = members
			cfg.Books = books
			cfg.Reveal = !hidden

			stats, err := seeding.Seed(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"members %d, books %d, ratings %d pre / %d post, revealed %d, failed %d in %s\n",
				stats.MembersCreated, stats.BooksCreated, stats.RatingsPre, stats.RatingsPost,
				stats.Revealed, stats.Failed, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&members, "members", seeding.DefaultMembers, "members to create")
	cmd.Flags().IntVar(&books, "books", seeding.DefaultBooks, "completed books to create")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "leave ratings hidden")
	return cmd
}

func newVerifyCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute the hall of fame from served ratings and compare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := seeding.Verify(cmd.Context(), flags.config())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ranked books: %d\n", res.Ranked)
			if res.Favorite != nil {
				fmt.Fprintf(out, "favorite: %s (%.1f)\n", res.Favorite.Book.Title, res.Favorite.Average)
			}
			if res.LeastFavorite != nil {
				fmt.Fprintf(out, "least favorite: %s (%.1f)\n", res.LeastFavorite.Book.Title, res.LeastFavorite.Average)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newStatsCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print every member's reading statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cards, err := seeding.FetchMemberStats(cmd.Context(), flags.config())
			if err != nil {
				return err
			}
			return seeding.WriteMemberStats(cmd.OutOrStdout(), cards)
		},
	}
}
