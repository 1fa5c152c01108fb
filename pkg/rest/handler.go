package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"strconv"

	"github.com/edgeflare/fluentrest/pkg/notify"
	pg "github.com/edgeflare/fluentrest/pkg/pgx"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// countColumn is the alias of the count(*) column returned by pg.Count.
const countColumn = "c"

var errEmptyBody = errors.New("request body must be a non-empty JSON object")

// entityHandler serves the routes of one EntityBuilder endpoint.
type entityHandler struct {
	*EntityBuilder
	ep         *Endpoint
	foreignKey string
}

func (h *entityHandler) find(w http.ResponseWriter, r *http.Request) {
	res := h.ep.newResult(r)
	defer Respond(w, r, res)

	if !h.verbs.Allows(r.Method) {
		res.Err = verbNotSupported(r.Method)
		return
	}

	id := r.PathValue(h.ep.idName)
	if id == "" {
		h.findAll(w, r, res, nil, h.collectionURI(res.Params))
		return
	}
	if named, ok := h.resource.namedQueries[id]; ok {
		h.findAll(w, r, res, named, h.itemURI(res.Params, id))
		return
	}
	h.findByID(r, res, id)
}

func (h *entityHandler) findAll(w http.ResponseWriter, r *http.Request, res *Result, named map[string]any, uri string) {
	q := r.URL.Query()
	filters := ParseFilters(q, h.reserved)
	maps.Copy(filters, named)
	filters = h.scope(r, filters)

	source := h.table.Resolve(OpGet, r, "")
	search := q.Get(paramQuery)
	if h.fullText != nil && search != "" {
		source = h.fullText.entity
	} else {
		search = ""
	}

	res.Collection = true
	res.URI = uri
	res.PrimaryKey = h.primaryKey
	res.CollectionURI = h.collectionURI(res.Params)

	stmt := pg.Select(ParseFields(q.Get(paramFields))...).
		From(source).
		Where(filters).
		OrderBy(ParseSort(q.Get(paramSort))...)
	if search != "" {
		stmt.Match(h.fullText.field, search)
	}

	if h.resource.pagination {
		page, size := pageParams(r, h.resource.pageSize)

		count := pg.Count().From(source).Where(filters)
		if search != "" {
			count.Match(h.fullText.field, search)
		}
		rows, err := h.store.Rows(r.Context(), count)
		if err != nil {
			res.Err = mapError(err, h.constraints)
			return
		}
		total, err := countOf(rows)
		if err != nil {
			res.Err = mapError(err, h.constraints)
			return
		}

		stmt.Limit(size).Offset(page * size)
		p, links := Paginate(uri, total, page, size)
		res.Pagination = &p
		res.Links = append(res.Links, links...)
		w.Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	}

	rows, err := h.store.Rows(r.Context(), stmt)
	if err != nil {
		res.Err = mapError(err, h.constraints)
		return
	}
	res.Rows = rows
}

func (h *entityHandler) findByID(r *http.Request, res *Result, id string) {
	res.URI = h.itemURI(res.Params, id)

	row, err := h.current(r, OpGetID, id, ParseFields(r.URL.Query().Get(paramFields)))
	if err != nil {
		res.Err = err
		return
	}
	res.Rows = []map[string]any{row}
}

// current loads the single row identified by id. It returns a not found
// error unless exactly one row matches.
func (h *entityHandler) current(r *http.Request, op Operation, id string, fields []string) (map[string]any, error) {
	stmt := pg.Select(fields...).
		From(h.table.Resolve(op, r, id)).
		Where(h.scope(r, nil)).
		And(h.primaryKey, id)

	rows, err := h.store.Rows(r.Context(), stmt)
	if err != nil {
		return nil, mapError(err, h.constraints)
	}

	uri := h.itemURI(h.ep.params(r), id)
	switch len(rows) {
	case 0:
		return nil, resourceNotFound(uri)
	case 1:
		return rows[0], nil
	default:
		return nil, ambiguousResource(uri)
	}
}

func (h *entityHandler) update(w http.ResponseWriter, r *http.Request) {
	res := h.ep.newResult(r)
	defer Respond(w, r, res)

	if !h.verbs.Allows(r.Method) {
		res.Err = verbNotSupported(r.Method)
		return
	}
	id := r.PathValue(h.ep.idName)
	if id == "" {
		res.Err = missingParameter(h.ep.idName)
		return
	}
	res.URI = h.itemURI(res.Params, id)

	op := OpPut
	if r.Method == http.MethodPatch {
		op = OpPatch
	}
	fields := ParseFields(r.URL.Query().Get(paramFields))

	// Functions compute the row themselves; the body is not read.
	table := h.table.Resolve(op, r, id)
	var stmt pg.Statement
	if pg.IsFunction(table) {
		stmt = pg.Select(fields...).From(table).And(h.primaryKey, id)
	} else {
		data, done := h.changes(r, res, op, id)
		if done {
			return
		}
		stmt = pg.Update(table, data).
			Where(h.scope(r, nil)).
			And(h.primaryKey, id).
			Returning(fields...)
	}

	rows, err := h.store.Rows(r.Context(), stmt)
	if err != nil {
		res.Err = mapError(err, h.constraints)
		return
	}
	if len(rows) == 0 {
		res.Err = resourceNotFound(res.URI)
		return
	}
	res.Rows = rows[:1]
	applyPrefer(w, r, res)

	h.ep.service.notify(r.Context(), notify.Event{
		Resource: h.ep.name,
		Op:       notify.OpUpdate,
		ID:       id,
		Row:      rows[0],
	})
}

// changes reads the columns to update from the request body: a JSON object,
// or for PATCH a JSON Patch document applied to the current row. done is set
// when res is already complete, either with an error or, for a patch that
// changes nothing, with the current row.
func (h *entityHandler) changes(r *http.Request, res *Result, op Operation, id string) (data map[string]any, done bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		res.Err = invalidRequest(err)
		return nil, true
	}

	if op == OpPatch && isJSONArray(body) {
		current, changes, err := h.patch(r, id, body)
		if err != nil {
			res.Err = err
			return nil, true
		}
		if len(changes) == 0 {
			res.Rows = []map[string]any{current}
			return nil, true
		}
		return changes, false
	}

	if err := json.Unmarshal(body, &data); err != nil {
		res.Err = invalidRequest(err)
		return nil, true
	}
	if len(data) == 0 {
		res.Err = invalidRequest(errEmptyBody)
		return nil, true
	}
	return data, false
}

// patch applies an RFC 6902 document to the current row and returns the row
// together with the columns whose value changed. Removed columns are set to
// null.
func (h *entityHandler) patch(r *http.Request, id string, body []byte) (map[string]any, map[string]any, error) {
	p, err := jsonpatch.DecodePatch(body)
	if err != nil {
		return nil, nil, invalidRequest(err)
	}

	current, err := h.current(r, OpGetID, id, []string{pg.Wildcard})
	if err != nil {
		return nil, nil, err
	}
	doc, err := json.Marshal(current)
	if err != nil {
		return nil, nil, fmt.Errorf("encode row: %w", err)
	}
	patched, err := p.Apply(doc)
	if err != nil {
		return nil, nil, invalidRequest(err)
	}

	var before, after map[string]any
	if err := json.Unmarshal(doc, &before); err != nil {
		return nil, nil, fmt.Errorf("decode row: %w", err)
	}
	if err := json.Unmarshal(patched, &after); err != nil {
		return nil, nil, invalidRequest(err)
	}

	changes := make(map[string]any)
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			changes[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changes[k] = nil
		}
	}
	return current, changes, nil
}

func (h *entityHandler) create(w http.ResponseWriter, r *http.Request) {
	res := h.ep.newResult(r)
	defer Respond(w, r, res)

	if !h.verbs.Allows(r.Method) {
		res.Err = verbNotSupported(r.Method)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		res.Err = invalidRequest(err)
		return
	}
	data := make(map[string]any)
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			res.Err = invalidRequest(err)
			return
		}
	}
	if data == nil {
		data = make(map[string]any)
	}
	if h.foreignKey != "" {
		if pid := h.ep.parentID(r); pid != "" {
			data[h.foreignKey] = pid
		}
	}

	fields := ParseFields(r.URL.Query().Get(paramFields))
	table := h.table.Resolve(OpPost, r, "")
	var stmt pg.Statement
	if pg.IsFunction(table) {
		stmt = pg.Select(fields...).From(table)
	} else {
		stmt = pg.Insert(table, data).Returning(fields...)
	}

	rows, err := h.store.Rows(r.Context(), stmt)
	if err != nil {
		res.Err = mapError(err, h.constraints)
		return
	}

	res.StatusCode = http.StatusCreated
	res.URI = h.collectionURI(res.Params)
	event := notify.Event{Resource: h.ep.name, Op: notify.OpCreate}
	if len(rows) > 0 {
		res.Rows = rows[:1]
		event.Row = rows[0]
		if id, ok := rows[0][h.primaryKey]; ok && id != nil {
			event.ID = fmt.Sprint(id)
			res.Params[h.ep.idName] = event.ID
			res.URI = h.itemURI(res.Params, event.ID)
			w.Header().Set("Location", res.URI)
		}
	}
	applyPrefer(w, r, res)

	h.ep.service.notify(r.Context(), event)
}

func (h *entityHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	res := h.ep.newResult(r)
	defer Respond(w, r, res)

	if !h.verbs.Allows(r.Method) {
		res.Err = verbNotSupported(r.Method)
		return
	}

	filters := h.scope(r, ParseFilters(r.URL.Query(), h.reserved))
	stmt := pg.Delete(h.table.Resolve(OpDelete, r, "")).Where(filters)
	if _, err := h.store.Run(r.Context(), stmt); err != nil {
		res.Err = mapError(err, h.constraints)
		return
	}
	res.StatusCode = http.StatusNoContent

	h.ep.service.notify(r.Context(), notify.Event{
		Resource: h.ep.name,
		Op:       notify.OpDelete,
		Filters:  filters,
	})
}

func (h *entityHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	res := h.ep.newResult(r)
	defer Respond(w, r, res)

	if !h.verbs.Allows(r.Method) {
		res.Err = verbNotSupported(r.Method)
		return
	}

	id := r.PathValue(h.ep.idName)
	res.URI = h.itemURI(res.Params, id)
	stmt := pg.Delete(h.table.Resolve(OpDelete, r, id)).
		Where(h.scope(r, nil)).
		And(h.primaryKey, id)
	if _, err := h.store.Run(r.Context(), stmt); err != nil {
		res.Err = mapError(err, h.constraints)
		return
	}
	res.StatusCode = http.StatusNoContent

	h.ep.service.notify(r.Context(), notify.Event{
		Resource: h.ep.name,
		Op:       notify.OpDelete,
		ID:       id,
	})
}

// scope adds the foreign key condition of a nested entity to filters.
func (h *entityHandler) scope(r *http.Request, filters map[string]any) map[string]any {
	if filters == nil {
		filters = make(map[string]any)
	}
	if h.foreignKey != "" {
		if pid := h.ep.parentID(r); pid != "" {
			filters[h.foreignKey] = pid
		}
	}
	return filters
}

func (h *entityHandler) collectionURI(params map[string]string) string {
	return JoinPath(expandPath(h.ep.URI(), params), "/")
}

func (h *entityHandler) itemURI(params map[string]string, id string) string {
	return JoinPath(JoinPath(h.collectionURI(params), url.PathEscape(id)), "/")
}

func isJSONArray(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) > 0 && body[0] == '['
}

// countOf reads the row count returned by a pg.Count statement.
func countOf(rows []map[string]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	switch v := rows[0][countColumn].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
