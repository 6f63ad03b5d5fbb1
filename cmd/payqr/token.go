package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/config"
	"github.com/payqr/payqr/database"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage bearer tokens",
	Long: `Manage bearer tokens stored in the database.

Tokens defined in the config file are not managed here; edit the
config and restart instead.`,
}

var tokenAddCmd = &cobra.Command{
	Use:   "add <id> <permission> [permission ...]",
	Short: "Create a token with the given permissions",
	Long: `Create a token with the given permissions and print its secret.

The secret is generated once and never shown again.

Examples:
  payqr token add ci-generator qr:generate
  payqr token add auditor audit:read template:read`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTokenAdd,
}

var tokenRevokeCmd = &cobra.Command{
	Use:     "revoke <id>",
	Aliases: []string{"rm"},
	Short:   "Revoke a token",
	Args:    cobra.ExactArgs(1),
	RunE:    runTokenRevoke,
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tokens",
	RunE:  runTokenList,
}

func init() {
	tokenCmd.AddCommand(tokenAddCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	tokenCmd.AddCommand(tokenListCmd)
	rootCmd.AddCommand(tokenCmd)
}

func openTokenRepo(cmd *cobra.Command) (payqr.TokenRepo, func(), error) {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err = db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if err = db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate database schema: %w", err)
	}

	return db.Repos().Tokens, func() { _ = db.Close() }, nil
}

func runTokenAdd(cmd *cobra.Command, args []string) error {
	tokens, closeDB, err := openTokenRepo(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	perms := make(payqr.Permissions, 0, len(args)-1)
	for _, p := range args[1:] {
		perms = append(perms, payqr.Permission(p))
	}

	secret, err := newSecret()
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	t, err := tokens.Create(cmd.Context(), payqr.Token{
		ID:          args[0],
		Secret:      secret,
		Permissions: perms,
	})
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	fmt.Printf("token %s created\nsecret: %s\n", t.ID, secret)
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	tokens, closeDB, err := openTokenRepo(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := tokens.Revoke(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	fmt.Printf("token %s revoked\n", args[0])
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	tokens, closeDB, err := openTokenRepo(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := tokens.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("no active tokens")
		return nil
	}

	for _, t := range list {
		fmt.Printf("%-20s %v  created %s\n", t.ID, t.Permissions, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func newSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
