package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coopt/core/history"
	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/pkg/export"
)

var (
	historyFormat    string
	historyObjective string
	historyOutcome   string
	historySince     time.Duration
	historyLimit     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Export journaled optimize outcomes",
	Long:  "Reads the jsonl or sqlite journal configured under history and writes it as JSON or CSV.",
	RunE:  exportHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", string(export.FormatJSON), "json or csv")
	historyCmd.Flags().StringVar(&historyObjective, "objective", "", "only this objective")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "only this outcome (success, network, status, malformed)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only records newer than this")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "keep the most recent records")
	rootCmd.AddCommand(historyCmd)
}

func exportHistory(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(historyFormat)
	if err != nil {
		return err
	}
	q := history.Query{Outcome: metrics.Outcome(historyOutcome), Limit: historyLimit}
	if historyObjective != "" {
		if q.Objective, err = optimizer.ParseObjective(historyObjective); err != nil {
			return err
		}
	}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Backend != "jsonl" && cfg.History.Backend != "sqlite" {
		return fmt.Errorf("history backend %q is not persistent", cfg.History.Backend)
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(context.Background(), q)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	return export.Write(cmd.OutOrStdout(), format, records)
}
