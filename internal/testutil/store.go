package testutil

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/edgeflare/fluentrest/pkg/pgx"
)

// Call is a statement received by a Store.
type Call struct {
	SQL  string
	Args []any
}

type rule struct {
	match    string
	rows     []map[string]any
	affected int64
	err      error
}

// Store is an in-memory stand-in for *pgx.DB. Statements are answered by the
// first rule whose fragment occurs in the generated SQL; statements matching
// no rule return no rows.
type Store struct {
	mu    sync.Mutex
	rules []rule
	calls []Call
}

func NewStore() *Store {
	return &Store{}
}

// OnQuery answers queries containing fragment with rows.
func (s *Store) OnQuery(fragment string, rows ...map[string]any) *Store {
	return s.add(rule{match: fragment, rows: rows})
}

// OnCount answers count queries containing fragment with n.
func (s *Store) OnCount(fragment string, n int64) *Store {
	return s.add(rule{match: "count(*) AS c FROM " + fragment, rows: []map[string]any{{"c": n}}})
}

// OnExec answers statements containing fragment with an affected row count.
func (s *Store) OnExec(fragment string, affected int64) *Store {
	return s.add(rule{match: fragment, affected: affected})
}

// OnError fails statements containing fragment with err.
func (s *Store) OnError(fragment string, err error) *Store {
	return s.add(rule{match: fragment, err: err})
}

func (s *Store) add(r rule) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
	return s
}

func (s *Store) Rows(_ context.Context, stmt pgx.Statement) ([]map[string]any, error) {
	r, ok := s.record(stmt)
	if !ok {
		return []map[string]any{}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	rows := make([]map[string]any, len(r.rows))
	for i, row := range r.rows {
		rows[i] = maps.Clone(row)
	}
	return rows, nil
}

func (s *Store) Run(_ context.Context, stmt pgx.Statement) (int64, error) {
	r, ok := s.record(stmt)
	if !ok {
		return 0, nil
	}
	return r.affected, r.err
}

func (s *Store) record(stmt pgx.Statement) (rule, bool) {
	query, args := stmt.SQL()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{SQL: query, Args: args})
	for _, r := range s.rules {
		if strings.Contains(query, r.match) {
			return r, true
		}
	}
	return rule{}, false
}

// Calls returns the statements received so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Last returns the most recent statement, or a zero Call.
func (s *Store) Last() Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}
	}
	return s.calls[len(s.calls)-1]
}
