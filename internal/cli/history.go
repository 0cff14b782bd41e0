package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/history"
)

func historyCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "history",
		Short: "Read and migrate teleport history",
	}

	c.AddCommand(historyShowCmd(opts))
	c.AddCommand(historyImportCmd(opts))
	return c
}

func historyShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <player-uuid>",
		Short: "List the worlds a player has been teleported in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing player id: %w", err)
			}
			cfg, err := opts.loadServer()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			// File backends create their file on open; show must not write.
			switch cfg.History.Backend {
			case config.BackendYAML, config.BackendSQLite:
				if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
					fmt.Fprintln(out, "(no history file)")
					return nil
				}
			}

			ctx := cmd.Context()
			backend, err := history.OpenBackend(ctx, cfg.History)
			if err != nil {
				return err
			}
			store, err := history.Open(ctx, backend, 0)
			if err != nil {
				backend.Close()
				return err
			}
			defer store.Close(ctx)

			worlds := store.Worlds(id)
			if len(worlds) == 0 {
				fmt.Fprintln(out, "(never teleported)")
				return nil
			}
			for _, w := range worlds {
				fmt.Fprintf(out, "- %s\n", w)
			}
			return nil
		},
	}
}

func historyImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <players.yml>",
		Short: "Copy a YAML history file into the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("history file: %w", err)
			}
			cfg, err := opts.loadServer()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := history.OpenYAML(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			recs, err := src.Load(ctx)
			if err != nil {
				return err
			}

			dst, err := history.OpenBackend(ctx, cfg.History)
			if err != nil {
				return err
			}
			var errs []error
			for _, r := range recs {
				if err := dst.Insert(ctx, r); err != nil {
					errs = append(errs, fmt.Errorf("importing %s/%s: %w", r.PlayerID, r.World, err))
				}
			}
			if err := dst.Flush(ctx); err != nil {
				errs = append(errs, fmt.Errorf("flushing %s history: %w", cfg.History.Backend, err))
			}
			if err := dst.Close(); err != nil {
				errs = append(errs, err)
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s history\n", len(recs), cfg.History.Backend)
			return nil
		},
	}
}
