package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the default barbers and catalog into an empty store",
	Long: `Seed creates the two default barbers when the shop has none and stores
the built-in service catalog when the services collection is empty.
Populated collections are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.engine.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	if err := res.Wait(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	snap := s.engine.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d barbers, %d services in the %s store\n", len(snap.Barbers), len(snap.Catalog), s.cfg.Store.Backend)
	return nil
}
