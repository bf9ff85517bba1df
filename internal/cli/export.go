package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/barberdash/internal/service/reporting"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("day", "", "Day to export, YYYY-MM-DD (default today)")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default Relatorio_<name>_<day>.csv, - for stdout)")
}

var exportCmd = &cobra.Command{
	Use:   "export BARBER_ID",
	Short: "Export a barber's day as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rawDay, _ := cmd.Flags().GetString("day")
	path, _ := cmd.Flags().GetString("out")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	day, err := s.day(rawDay)
	if err != nil {
		return err
	}
	snap := s.engine.Snapshot()
	barber, ok := snap.Barber(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", syncengine.ErrUnknownBarber, args[0])
	}
	summary := reporting.Summarize(barber, snap.History, day, s.engine.Location())

	if path == "-" {
		return reporting.WriteCSV(cmd.OutOrStdout(), summary, s.engine.Location())
	}
	if path == "" {
		path = reporting.CSVFilename(summary)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := reporting.WriteCSV(f, summary, s.engine.Location()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "💾 %d sales written to %s\n", len(summary.Items), path)
	return nil
}
