package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

// getSharedTestDatabase returns a shared database pool for all tests.
// Reusing one container keeps the suite fast; table names stay unique
// per test for isolation.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = pgContainer.Terminate(ctx)
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			_ = pgContainer.Terminate(ctx)
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepos creates migrated repositories with unique table names
// on the shared container, dropping them when the test finishes.
func setupTestRepos(t *testing.T) payqr.Repos {
	t.Helper()

	ctx := context.Background()
	pool := getSharedTestDatabase(t)

	suffix := getRandomString(t)
	tables := payqr.Tables{
		Tokens:    "tokens_" + suffix,
		AccessLog: "access_" + suffix,
		Templates: "templates_" + suffix,
	}

	db := postgres.NewDatabase(pool, tables)
	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	t.Cleanup(func() {
		for _, name := range []string{tables.Tokens, tables.AccessLog, tables.Templates} {
			_ = dropTable(context.Background(), pool, name)
		}
	})

	return db.Repos()
}

// dropTable drops the specified table for test cleanup.
func dropTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", quotedTable)
	_, err := pool.Exec(ctx, sql)
	return err
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
