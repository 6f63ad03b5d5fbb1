package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	server     string
	token      string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "payqr-cli",
	Version: version,
	Short:   "Client for payqr payment code servers",
	Long: `Payqr CLI - Client for payqr payment code servers

Generate EPC payment QR codes, decode them back, and inspect the
server's access log. Operations that need permissions send the
configured bearer token.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.payqr/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", "", "server URL (default: http://localhost:8080, env: PAYQR_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token secret (env: PAYQR_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildConfig merges config from file, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	// 1. Load from config file
	configPath := getConfigPath()
	if configPath != "" {
		fileCfg, err := clientcli.LoadConfigFromFile(configPath)
		if err != nil {
			// Only error if user explicitly specified a config file
			if cfgFile != "" {
				return nil, err
			}
		} else {
			configs = append(configs, fileCfg)
		}
	}

	// 2. Load from environment variables
	configs = append(configs, clientcli.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &clientcli.Config{
		Endpoint: server,
		Token:    token,
	})

	return clientcli.MergeConfig(configs...), nil
}

// getConfigPath resolves the config file path from flag, env, or default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// handleError prints the error through the formatter and returns it so
// cobra exits non-zero. Errors and usage are silenced on the root
// command to avoid double-printing.
func handleError(w io.Writer, err error) error {
	_ = getFormatter().FormatError(w, err)
	return err
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
