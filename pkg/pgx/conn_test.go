package pgx

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/edgeflare/fluentrest/internal/testutil/pgtest"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface compliance checks
var (
	_ Conn      = (*pgx.Conn)(nil)
	_ Conn      = (*pgxpool.Pool)(nil)
	_ Conn      = (*pgxpool.Conn)(nil)
	_ Statement = (*SelectStatement)(nil)
	_ Statement = (*InsertStatement)(nil)
	_ Statement = (*UpdateStatement)(nil)
	_ Statement = (*DeleteStatement)(nil)
)

func TestNormalize(t *testing.T) {
	id := uuid.MustParse("0b6f6a4e-2f6c-4f53-9a43-5d0a3c9e8f10")
	assert.Equal(t, id.String(), normalize([16]byte(id)))
	assert.Equal(t, int64(7), normalize(int64(7)))
	assert.Nil(t, normalize(nil))

	balance := normalize(pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true})
	assert.Equal(t, json.Number("123.45"), balance)
	body, err := json.Marshal(map[string]any{"balance": balance})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":123.45}`, string(body))

	assert.Equal(t, json.Number("-0.05"), normalize(pgtype.Numeric{Int: big.NewInt(-5), Exp: -2, Valid: true}))
	assert.Equal(t, "NaN", normalize(pgtype.Numeric{NaN: true, Valid: true}))
	assert.Equal(t, "Infinity", normalize(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}))
	assert.Nil(t, normalize(pgtype.Numeric{}))
}

func TestDB(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn := pgtest.Connect(ctx, t)
	_, err := conn.Exec(ctx, `CREATE TEMP TABLE accounts (
		id serial PRIMARY KEY,
		ref uuid NOT NULL DEFAULT gen_random_uuid(),
		name text NOT NULL
	)`)
	require.NoError(t, err)

	db := NewDB(conn)

	rows, err := db.Rows(ctx, Insert("accounts", map[string]any{"name": "Acme"}).Returning())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["name"])
	_, err = uuid.Parse(rows[0]["ref"].(string))
	assert.NoError(t, err)

	rows, err = db.Rows(ctx, Count().From("accounts"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows[0]["c"])

	n, err := db.Run(ctx, Delete("accounts").And("name", "Acme"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err = db.Rows(ctx, Select().From("accounts"))
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
