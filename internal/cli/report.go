package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/barberdash/internal/service/reporting"
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("day", "", "Day to report, YYYY-MM-DD (default today)")
	reportCmd.Flags().Bool("publish", false, "Send the report to the configured sinks")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print or publish the closing report of a day",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rawDay, _ := cmd.Flags().GetString("day")
	publish, _ := cmd.Flags().GetBool("publish")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	day, err := s.day(rawDay)
	if err != nil {
		return err
	}

	if !publish {
		report := reporting.NewService(s.engine, s.logger).Build(day)
		fmt.Fprintln(cmd.OutOrStdout(), reporting.RenderClosing(report))
		return nil
	}

	sinks, err := reporting.SinksFromConfig(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		return errors.New("no report sink configured: set GOOGLE_SHEETS_* or WHATSAPP_* variables")
	}
	report, err := reporting.NewService(s.engine, s.logger.Named("svc.reporting"), sinks...).PublishDay(ctx, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📤 closing report of %s published to %d sinks (total R$ %s)\n",
		report.Day.Format(dayLayout), len(sinks), report.Totals.Total.StringFixed(2))
	return nil
}
