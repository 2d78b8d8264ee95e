package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coopt/app"
	"github.com/kilianp07/coopt/core/optimizer"
)

var objectiveFlag string

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run one optimization and print the result",
	RunE:  optimizeOnce,
}

func init() {
	optimizeCmd.Flags().StringVarP(&objectiveFlag, "objective", "o", string(optimizer.ObjectiveHeavy), "heavy or proportional")
	rootCmd.AddCommand(optimizeCmd)
}

func optimizeOnce(cmd *cobra.Command, args []string) error {
	obj, err := optimizer.ParseObjective(objectiveFlag)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Session.Optimize(ctx, obj)
	if err != nil {
		return fmt.Errorf("optimize %s: %w", obj, err)
	}
	if res.IsEmpty() {
		fmt.Fprintln(cmd.OutOrStdout(), "simulated optimization finished")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.String())
	return nil
}
