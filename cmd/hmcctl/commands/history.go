package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/config"
	"github.com/openlpar/hmcctl/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local invocation history",
		Long: `Read the local invocation history database. History recording is enabled
in the config file; these commands only read and prune the local database
and never contact the console.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// withHistoryStore opens the configured history database around fn.
func withHistoryStore(cmd *cobra.Command, fn func(store *stores.HistoryStore) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is not enabled in the configuration")
	}
	store, err := stores.NewHistoryStore(stores.Config{Path: cfg.History.Path})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("history store close failed")
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(store)
}

func newHistoryListCommand() *cobra.Command {
	var (
		target string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded invocations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(cmd, func(store *stores.HistoryStore) error {
				rows, err := store.List(cmd.Context(), stores.ListOptions{
					Target: target,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				return printJSON(rows)
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "only invocations against this system")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return (default 50)")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(cmd, func(store *stores.HistoryStore) error {
				row, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(row)
			})
		},
	}
	return cmd
}

func newHistoryPruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete invocations older than a cutoff",
		Example: `  # Drop everything older than 30 days
  hmcctl history prune --older-than 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(cmd, func(store *stores.HistoryStore) error {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				return printJSON(map[string]int64{"pruned": n})
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")
	return cmd
}
