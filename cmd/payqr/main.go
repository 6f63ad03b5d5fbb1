package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "payqr",
	Short:   "Payment QR code server with bearer token access control",
	Long: `Payqr is a lightweight HTTP server that generates and scans
EPC payment QR codes, with per-token permissions and an
append-only access log.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if cf, _ := cmd.Flags().GetString("config"); cf != "" {
			files = append(files, cf)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: PAYQR_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: payqr.db, env: PAYQR_DATABASE_DSN)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
