// Inspecta
//
// A conversational quality-inspection assistant. Upload a photo or voice
// note, chat about the part, and raise inspection tickets when the
// assistant spots a defect.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inspecta-dev/inspecta/internal/config"
	"github.com/inspecta-dev/inspecta/internal/server"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "inspecta",
	Short: "Inspecta - Quality Inspection Assistant",
	Long: `Inspecta is a conversational quality-inspection assistant.
Upload a photo or voice note, chat about the part, raise a ticket.

  inspecta serve                        Start the server
  inspecta config set KEY VALUE         Set a config value
  inspecta config show                  Show current configuration`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Inspecta server",
	Long: `Start the HTTP API server and, when configured, the Telegram channel.
Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	s, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Start(ctx)
}
