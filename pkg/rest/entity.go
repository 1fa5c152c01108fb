package rest

import (
	"cmp"
	"net/http"
)

const defaultFullTextField = "document"

type fullText struct {
	entity string
	field  string
}

// EntityBuilder configures the CRUD endpoint of a table backed resource.
type EntityBuilder struct {
	resource    *Resource
	store       Store
	table       TableRef
	verbs       Verbs
	primaryKey  string
	foreignKey  string
	reserved    map[string]bool
	constraints map[string]constraint
	fullText    *fullText
}

func (b *EntityBuilder) DisableGet() *EntityBuilder { b.verbs.Get = false; return b }
func (b *EntityBuilder) DisablePut() *EntityBuilder { b.verbs.Put = false; return b }
func (b *EntityBuilder) DisablePatch() *EntityBuilder { b.verbs.Patch = false; return b }
func (b *EntityBuilder) DisablePost() *EntityBuilder { b.verbs.Post = false; return b }
func (b *EntityBuilder) DisableDelete() *EntityBuilder { b.verbs.Delete = false; return b }

// WithVerbs replaces the enabled methods.
func (b *EntityBuilder) WithVerbs(v Verbs) *EntityBuilder {
	b.verbs = v
	return b
}

// PrimaryKey sets the column matched against the id segment. Defaults to "id".
func (b *EntityBuilder) PrimaryKey(column string) *EntityBuilder {
	if column != "" {
		b.primaryKey = column
	}
	return b
}

// ForeignKey sets the column referencing the parent resource. Defaults to
// the parent's id parameter name, eg account_id.
func (b *EntityBuilder) ForeignKey(column string) *EntityBuilder {
	b.foreignKey = column
	return b
}

// Reserve excludes query parameters from the equality filters.
func (b *EntityBuilder) Reserve(params ...string) *EntityBuilder {
	for _, p := range params {
		b.reserved[p] = true
	}
	return b
}

// OnConstraintViolation reports violations of the named database constraint
// as 409 Conflict with message.
func (b *EntityBuilder) OnConstraintViolation(name, message string) *EntityBuilder {
	return b.OnConstraint(name, http.StatusConflict, message)
}

// OnConstraint reports violations of the named database constraint with the
// given status and message.
func (b *EntityBuilder) OnConstraint(name string, status int, message string) *EntityBuilder {
	b.constraints[name] = constraint{message: message, statusCode: cmp.Or(status, http.StatusConflict)}
	return b
}

// UsesFullText answers collection requests carrying q from entity, matching
// field with plainto_tsquery. field defaults to "document".
func (b *EntityBuilder) UsesFullText(entity, field string) *EntityBuilder {
	b.fullText = &fullText{entity: entity, field: cmp.Or(field, defaultFullTextField)}
	return b
}

// Endpoint registers the routes of the entity and links it from its parent.
//
// With U the URI template of the resource and {id} its id parameter:
//
//	GET    U, U/           list (paginated)
//	GET    U/{id}, U/{id}/ fetch one, or run a named query
//	PUT    U/{id}          update
//	PATCH  U/{id}          merge update or RFC 6902 JSON Patch
//	POST   U               insert
//	DELETE U               delete matching the filters
//	DELETE U/{id}          delete one
func (b *EntityBuilder) Endpoint() *Endpoint {
	mp := b.resource.mount
	ep := mp.newEndpoint(mp.IDName(), b.resource.description)

	h := &entityHandler{
		EntityBuilder: b,
		ep:            ep,
		foreignKey:    b.foreignKey,
	}
	if mp.parent != nil && mp.parent.idName != "" {
		h.foreignKey = cmp.Or(h.foreignKey, mp.parent.idName)
	} else {
		h.foreignKey = ""
	}

	for _, p := range ep.collectionPatterns() {
		ep.handle(http.MethodGet, p, h.find)
		ep.handle(http.MethodPut, p, h.update)
		ep.handle(http.MethodPatch, p, h.update)
		ep.handle(http.MethodPost, p, h.create)
		ep.handle(http.MethodDelete, p, h.deleteAll)
	}
	for _, p := range ep.itemPatterns() {
		ep.handle(http.MethodGet, p, h.find)
		ep.handle(http.MethodPut, p, h.update)
		ep.handle(http.MethodPatch, p, h.update)
		ep.handle(http.MethodDelete, p, h.deleteOne)
	}

	if mp.parent != nil {
		mp.parent.addLink(newLink(mp.resourceName, ep.itemTemplate(), b.resource.description))
	}
	return ep
}
