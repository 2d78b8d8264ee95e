package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/coopt/infra/logger"
	"github.com/kilianp07/coopt/mockserver"
)

var mockAddr string

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run the local mock optimizer service",
	RunE:  runMock,
}

func init() {
	mockCmd.Flags().StringVar(&mockAddr, "addr", "", "listen address (overrides mock.address)")
	rootCmd.AddCommand(mockCmd)
}

func runMock(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	mcfg := cfg.Mock
	if mockAddr != "" {
		mcfg.Address = mockAddr
	}
	return mockserver.NewServer(mcfg).Start(ctx)
}
