package cli

import (
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-engine/internal/services"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Finalize every overdue attempt once and exit",
		Long:  "Runs a single expiry pass, for deployments that schedule sweeps externally (cron) instead of in the server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// The server-side ticker is irrelevant for a one-shot run.
			cfg.SweepInterval = 0

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			batch, _ := cmd.Flags().GetInt("batch")
			expired, err := services.NewSweeper(a.services.Attempt(), 0, batch, logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("Sweep finished", "expired", expired)
			return nil
		},
	}
	cmd.Flags().Int("batch", services.DefaultSweepBatch, "Attempts finalized per query")
	commonFlags(cmd.Flags())
	return cmd
}
