package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr/clientcli"
)

var (
	auditTokenID string
	auditLimit   int
	auditCursor  string
	auditAll     bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List access records from the server",
	Long: `List access records from the server's append-only access log.

Requires a token with the audit:read permission.

Examples:
  payqr-cli audit
  payqr-cli audit --token-id ci-generator
  payqr-cli audit --all --json > audit.json`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditTokenID, "token-id", "", "only records for this token id")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "records per page (max 1000)")
	auditCmd.Flags().StringVar(&auditCursor, "cursor", "", "pagination cursor from a previous page")
	auditCmd.Flags().BoolVar(&auditAll, "all", false, "fetch all pages")
}

func runAudit(_ *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Audit(context.Background(), clientcli.AuditOptions{
		TokenID: auditTokenID,
		Limit:   auditLimit,
		Cursor:  auditCursor,
		All:     auditAll,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatAudit(os.Stdout, result)
}
