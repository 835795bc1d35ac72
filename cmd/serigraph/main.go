// Command serigraph serializes JSON records through declarative schema
// documents, from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okanra/serigraph/internal/eventbus"
	"github.com/okanra/serigraph/internal/otel"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "serigraph",
	Short:        "Schema-driven JSON serialization CLI",
	Long:         "serigraph — serialize JSON records through declarative schema documents.",
	SilenceUsage: true,
}

// otelShutdown flushes pending spans on exit; set in the pre-run hook.
var otelShutdown func()

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().String("otel.endpoint", "", "OTLP collector endpoint")
	rootCmd.PersistentFlags().String("otel.service", "serigraph", "OpenTelemetry service name")
	rootCmd.PersistentFlags().Bool("debug", false, "Dump resolved options to stderr")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("serigraph version %s\n", version))

	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		if otelShutdown != nil {
			otelShutdown()
		}
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
}

func setup(cmd *cobra.Command, _ []string) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	} else {
		// Best effort; a missing .env is not an error.
		_ = godotenv.Load()
	}

	endpoint, _ := cmd.Flags().GetString("otel.endpoint")
	if endpoint == "" {
		endpoint = os.Getenv("SERIGRAPH_OTEL_ENDPOINT")
	}
	if endpoint == "" {
		return nil
	}
	service, _ := cmd.Flags().GetString("otel.service")

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(endpoint, service)
	if err != nil {
		return fmt.Errorf("configuring telemetry: %w", err)
	}
	otelShutdown = func() { _ = shutdown(cmd.Context()) }
	return nil
}
