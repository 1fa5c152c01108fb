package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Conn defines a common interface for interacting with PostgreSQL connections.
// It is satisfied by *pgx.Conn, *pgxpool.Conn and *pgxpool.Pool.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB executes Statements on a Conn and collects results as column maps.
type DB struct {
	conn Conn
}

// NewDB wraps conn.
func NewDB(conn Conn) *DB {
	return &DB{conn: conn}
}

// Rows runs stmt and returns every row keyed by column name. A query that
// matches nothing returns an empty, non-nil slice.
func (db *DB) Rows(ctx context.Context, stmt Statement) ([]map[string]any, error) {
	query, args := stmt.SQL()
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Run executes stmt and returns the number of affected rows.
func (db *DB) Run(ctx context.Context, stmt Statement) (int64, error) {
	query, args := stmt.SQL()
	tag, err := db.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fieldDescriptions := rows.FieldDescriptions()
	columnNames := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columnNames[i] = fd.Name
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columnNames))
		for i, name := range columnNames {
			row[name] = normalize(values[i])
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// normalize converts driver values without a useful JSON or XML form. uuid
// columns are decoded by pgx as [16]byte and numeric columns as pgtype.Numeric.
func normalize(v any) any {
	switch v := v.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		text, err := v.Value()
		if err != nil {
			return v
		}
		if v.NaN || v.InfinityModifier != pgtype.Finite {
			return text
		}
		return json.Number(text.(string))
	}
	return v
}
