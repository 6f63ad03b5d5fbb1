package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepos creates repositories with unique table names for test
// isolation.
func setupTestRepos(t *testing.T) payqr.Repos {
	t.Helper()

	ctx := context.Background()

	suffix := getRandomString(t)
	tables := payqr.Tables{
		Tokens:    "tokens_" + suffix,
		AccessLog: "access_" + suffix,
		Templates: "templates_" + suffix,
	}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "failed to connect")

	err = db.Migrate(ctx)
	require.NoError(t, err, "failed to migrate")

	t.Cleanup(func() { _ = db.Close() })

	return db.Repos()
}

func defaultTables() payqr.Tables {
	return payqr.Tables{
		Tokens:    "payqr_tokens",
		AccessLog: "payqr_access_log",
		Templates: "payqr_templates",
	}
}

func testTemplate(name string) payqr.Template {
	return payqr.Template{
		Name:      name,
		Recipient: "ACME GmbH",
		IBAN:      "DE89370400440532013000",
		BIC:       "COBADEFFXXX",
		Amount:    "12.50",
		Currency:  "EUR",
		Purpose:   "GDDS",
	}
}
