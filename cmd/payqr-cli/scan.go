package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr/clientcli"
)

var scanStdin bool

var scanCmd = &cobra.Command{
	Use:   "scan <image-path>",
	Short: "Decode a payment QR code image",
	Long: `Decode a payment QR code image and print the payment details.

Examples:
  payqr-cli scan invoice.png
  payqr-cli scan --json invoice.png | jq .payment.iban
  cat invoice.png | payqr-cli scan --stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanStdin, "stdin", false, "read the image from stdin")
}

func runScan(cmd *cobra.Command, args []string) error {
	localPath := ""
	if len(args) > 0 {
		localPath = args[0]
	}
	if scanStdin {
		localPath = "-"
	}
	if localPath == "" {
		return cmd.Help()
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Scan(context.Background(), clientcli.ScanOptions{LocalPath: localPath})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatScan(os.Stdout, result)
}
