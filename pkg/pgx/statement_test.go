package pgx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStatement(t *testing.T) {
	tests := []struct {
		name     string
		stmt     *SelectStatement
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "wildcard",
			stmt:     Select(Wildcard).From("accounts"),
			wantSQL:  `SELECT * FROM "accounts"`,
			wantArgs: nil,
		},
		{
			name:    "schema qualified with filters, sort and paging",
			stmt:    Select("id", "name").From("app.accounts").Where(map[string]any{"status": "open", "kind": "retail"}).OrderBy(Order{Column: "name", Direction: Descending}, Order{Column: "id"}).Limit(5).Offset(10),
			wantSQL: `SELECT "id", "name" FROM "app"."accounts" WHERE "kind" = $1 AND "status" = $2 ORDER BY "name" DESC, "id" ASC LIMIT $3 OFFSET $4`,
			wantArgs: []any{"retail", "open", 5, 10},
		},
		{
			name:     "count with foreign key",
			stmt:     Count().From("addresses").And("account_id", "42"),
			wantSQL:  `SELECT count(*) AS c FROM "addresses" WHERE "account_id" = $1`,
			wantArgs: []any{"42"},
		},
		{
			name:     "full text",
			stmt:     Select().From("accounts_search").Match("document", "acme corp"),
			wantSQL:  `SELECT * FROM "accounts_search" WHERE "document" @@ plainto_tsquery($1)`,
			wantArgs: []any{"acme corp"},
		},
		{
			name:     "function source is not quoted",
			stmt:     Select("id").From("recent_accounts(7)"),
			wantSQL:  `SELECT "id" FROM recent_accounts(7)`,
			wantArgs: nil,
		},
		{
			name:     "nil filter",
			stmt:     Select().From("accounts").And("closed_at", nil),
			wantSQL:  `SELECT * FROM "accounts" WHERE "closed_at" IS NULL`,
			wantArgs: nil,
		},
		{
			name:     "quoted identifiers are escaped",
			stmt:     Select(`we"ird`).From("accounts"),
			wantSQL:  `SELECT "we""ird" FROM "accounts"`,
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.stmt.SQL()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertStatement(t *testing.T) {
	sql, args := Insert("accounts", map[string]any{"name": "acme", "balance": 10}).Returning("id", "name").SQL()
	assert.Equal(t, `INSERT INTO "accounts" ("balance", "name") VALUES ($1, $2) RETURNING "id", "name"`, sql)
	assert.Equal(t, []any{10, "acme"}, args)

	sql, args = Insert("accounts", nil).SQL()
	assert.Equal(t, `INSERT INTO "accounts" DEFAULT VALUES RETURNING *`, sql)
	assert.Empty(t, args)
}

func TestUpdateStatement(t *testing.T) {
	sql, args := Update("accounts", map[string]any{"name": "acme"}).And("id", "42").Returning(Wildcard).SQL()
	assert.Equal(t, `UPDATE "accounts" SET "name" = $1 WHERE "id" = $2 RETURNING *`, sql)
	assert.Equal(t, []any{"acme", "42"}, args)
}

func TestDeleteStatement(t *testing.T) {
	sql, args := Delete("addresses").Where(map[string]any{"city": "Oslo"}).And("account_id", "42").SQL()
	assert.Equal(t, `DELETE FROM "addresses" WHERE "city" = $1 AND "account_id" = $2`, sql)
	assert.Equal(t, []any{"Oslo", "42"}, args)

	sql, args = Delete("addresses").SQL()
	assert.Equal(t, `DELETE FROM "addresses"`, sql)
	assert.Empty(t, args)
}

func TestIsFunction(t *testing.T) {
	assert.True(t, IsFunction("touch_account(1)"))
	assert.False(t, IsFunction("accounts"))
	assert.False(t, IsFunction("public.accounts"))
}
