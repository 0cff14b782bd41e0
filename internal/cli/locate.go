package cli

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/udisondev/rtp/internal/rtp"
	"github.com/udisondev/rtp/internal/terrain"
)

// locateCmd runs the location search against generated terrain without
// touching chunk files.
func locateCmd(opts *options) *cobra.Command {
	var (
		worldName string
		count     int
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Preview safe random teleport locations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := opts.loadServer()
			if err != nil {
				return err
			}
			plugin, err := opts.loadPlugin(srv)
			if err != nil {
				return err
			}
			if worldName == "" {
				worldName = plugin.TargetWorld
			}
			wcfg, ok := srv.World(worldName)
			if !ok {
				return fmt.Errorf("world %q is not configured", worldName)
			}

			w, err := terrain.New(wcfg, "")
			if err != nil {
				return err
			}
			defer w.Close()

			var src rand.Source
			if seed != 0 {
				src = rand.NewPCG(seed, seed)
			}
			finder := rtp.NewFinder(plugin.Radius, plugin.MaxSearchAttempts, src)

			out := cmd.OutOrStdout()
			for range count {
				c, err := finder.Find(cmd.Context(), w)
				if err != nil {
					return fmt.Errorf("searching %s: %w", worldName, err)
				}
				fmt.Fprintf(out, "%d %d %d\n", c.X, c.Y, c.Z)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&worldName, "world", "w", "", "world to search (default: target-world)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of locations")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; 0 picks one")
	return cmd
}
