package pgx

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Wildcard selects every column of the source.
const Wildcard = "*"

// Statement renders to a SQL string with positional ($n) arguments.
type Statement interface {
	SQL() (string, []any)
}

// Direction is the sort direction of an ORDER BY term.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Order is a single ORDER BY term.
type Order struct {
	Column    string
	Direction Direction
}

type condition struct {
	column string
	op     string
	value  any
}

type queryBuilder struct {
	values    []any
	nextIndex int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{nextIndex: 1}
}

func (qb *queryBuilder) placeholder(value any) string {
	p := fmt.Sprintf("$%d", qb.nextIndex)
	qb.nextIndex++
	qb.values = append(qb.values, value)
	return p
}

func (qb *queryBuilder) where(conds []condition) string {
	if len(conds) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c.op {
		case "@@":
			clauses = append(clauses, fmt.Sprintf("%s @@ plainto_tsquery(%s)", columnIdentifier(c.column), qb.placeholder(c.value)))
		default:
			if c.value == nil {
				clauses = append(clauses, fmt.Sprintf("%s IS NULL", columnIdentifier(c.column)))
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s %s %s", columnIdentifier(c.column), c.op, qb.placeholder(c.value)))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// IsFunction reports whether name looks like a database function call
// (eg "search_accounts('x')") rather than a table or view.
func IsFunction(name string) bool {
	return strings.Contains(name, "(") && strings.Contains(name, ")")
}

func tableIdentifier(name string) string {
	if IsFunction(name) {
		return name
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func columnIdentifier(name string) string {
	if name == Wildcard {
		return name
	}
	return pgx.Identifier{name}.Sanitize()
}

func columnList(fields []string) string {
	if len(fields) == 0 {
		return Wildcard
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = columnIdentifier(f)
	}
	return strings.Join(cols, ", ")
}

// equalities converts a filter map into conditions ordered by column name so
// that generated SQL is stable.
func equalities(filters map[string]any) []condition {
	conds := make([]condition, 0, len(filters))
	for _, k := range slices.Sorted(maps.Keys(filters)) {
		conds = append(conds, condition{column: k, op: "=", value: filters[k]})
	}
	return conds
}

// SelectStatement builds a SELECT query.
type SelectStatement struct {
	fields []string
	count  bool
	from   string
	conds  []condition
	order  []Order
	limit  int
	offset int
}

// Select starts a SELECT of the given columns. No columns, or the Wildcard,
// selects all columns.
func Select(fields ...string) *SelectStatement {
	return &SelectStatement{fields: fields}
}

// Count starts a SELECT count(*) AS c query.
func Count() *SelectStatement {
	return &SelectStatement{count: true}
}

func (s *SelectStatement) From(table string) *SelectStatement {
	s.from = table
	return s
}

// Where adds an equality condition for every entry of filters.
func (s *SelectStatement) Where(filters map[string]any) *SelectStatement {
	s.conds = append(s.conds, equalities(filters)...)
	return s
}

// And adds a single equality condition.
func (s *SelectStatement) And(column string, value any) *SelectStatement {
	s.conds = append(s.conds, condition{column: column, op: "=", value: value})
	return s
}

// Match adds a full-text condition: column @@ plainto_tsquery(query).
func (s *SelectStatement) Match(column, query string) *SelectStatement {
	s.conds = append(s.conds, condition{column: column, op: "@@", value: query})
	return s
}

func (s *SelectStatement) OrderBy(orders ...Order) *SelectStatement {
	s.order = append(s.order, orders...)
	return s
}

func (s *SelectStatement) Limit(n int) *SelectStatement {
	s.limit = n
	return s
}

func (s *SelectStatement) Offset(n int) *SelectStatement {
	s.offset = n
	return s
}

func (s *SelectStatement) SQL() (string, []any) {
	qb := newQueryBuilder()
	var query strings.Builder

	query.WriteString("SELECT ")
	if s.count {
		query.WriteString("count(*) AS c")
	} else {
		query.WriteString(columnList(s.fields))
	}
	query.WriteString(" FROM ")
	query.WriteString(tableIdentifier(s.from))
	query.WriteString(qb.where(s.conds))

	if len(s.order) > 0 {
		terms := make([]string, len(s.order))
		for i, o := range s.order {
			dir := o.Direction
			if dir == "" {
				dir = Ascending
			}
			terms[i] = fmt.Sprintf("%s %s", columnIdentifier(o.Column), dir)
		}
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(terms, ", "))
	}

	if s.limit > 0 {
		query.WriteString(" LIMIT " + qb.placeholder(s.limit))
	}
	if s.offset > 0 {
		query.WriteString(" OFFSET " + qb.placeholder(s.offset))
	}

	return query.String(), qb.values
}

// InsertStatement builds an INSERT ... RETURNING query.
type InsertStatement struct {
	table     string
	data      map[string]any
	returning []string
}

func Insert(table string, data map[string]any) *InsertStatement {
	return &InsertStatement{table: table, data: data}
}

func (s *InsertStatement) Returning(fields ...string) *InsertStatement {
	s.returning = fields
	return s
}

func (s *InsertStatement) SQL() (string, []any) {
	qb := newQueryBuilder()

	keys := slices.Sorted(maps.Keys(s.data))
	columns := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	for i, key := range keys {
		columns[i] = columnIdentifier(key)
		placeholders[i] = qb.placeholder(s.data[key])
	}

	var query string
	if len(keys) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", tableIdentifier(s.table))
	} else {
		query = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			tableIdentifier(s.table),
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		)
	}
	return query + " RETURNING " + columnList(s.returning), qb.values
}

// UpdateStatement builds an UPDATE ... RETURNING query.
type UpdateStatement struct {
	table     string
	data      map[string]any
	conds     []condition
	returning []string
}

func Update(table string, data map[string]any) *UpdateStatement {
	return &UpdateStatement{table: table, data: data}
}

func (s *UpdateStatement) Where(filters map[string]any) *UpdateStatement {
	s.conds = append(s.conds, equalities(filters)...)
	return s
}

func (s *UpdateStatement) And(column string, value any) *UpdateStatement {
	s.conds = append(s.conds, condition{column: column, op: "=", value: value})
	return s
}

func (s *UpdateStatement) Returning(fields ...string) *UpdateStatement {
	s.returning = fields
	return s
}

func (s *UpdateStatement) SQL() (string, []any) {
	qb := newQueryBuilder()

	keys := slices.Sorted(maps.Keys(s.data))
	sets := make([]string, len(keys))
	for i, key := range keys {
		sets[i] = fmt.Sprintf("%s = %s", columnIdentifier(key), qb.placeholder(s.data[key]))
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		tableIdentifier(s.table),
		strings.Join(sets, ", "),
		qb.where(s.conds),
		columnList(s.returning),
	)
	return query, qb.values
}

// DeleteStatement builds a DELETE query.
type DeleteStatement struct {
	table string
	conds []condition
}

func Delete(table string) *DeleteStatement {
	return &DeleteStatement{table: table}
}

func (s *DeleteStatement) Where(filters map[string]any) *DeleteStatement {
	s.conds = append(s.conds, equalities(filters)...)
	return s
}

func (s *DeleteStatement) And(column string, value any) *DeleteStatement {
	s.conds = append(s.conds, condition{column: column, op: "=", value: value})
	return s
}

func (s *DeleteStatement) SQL() (string, []any) {
	qb := newQueryBuilder()
	return fmt.Sprintf("DELETE FROM %s%s", tableIdentifier(s.table), qb.where(s.conds)), qb.values
}
