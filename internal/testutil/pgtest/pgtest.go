package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// EnvTestDatabase names the environment variable holding the connection
// string of a disposable PostgreSQL database.
const EnvTestDatabase = "TEST_DATABASE"

// ConnString returns the test database connection string, skipping the test
// when none is configured.
func ConnString(t testing.TB) string {
	t.Helper()
	connString := os.Getenv(EnvTestDatabase)
	if connString == "" {
		t.Skipf("%s not set", EnvTestDatabase)
	}
	return connString
}

// Connect creates a new database connection for testing, closed on cleanup.
func Connect(ctx context.Context, t testing.TB) *pgx.Conn {
	t.Helper()
	config, err := pgx.ParseConfig(ConnString(t))
	require.NoError(t, err)

	config.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		t.Logf("PostgreSQL %s: %s", n.Severity, n.Message)
	}

	conn, err := pgx.ConnectConfig(ctx, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, conn.Close(ctx))
	})

	return conn
}
