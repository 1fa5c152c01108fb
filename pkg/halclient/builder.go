package halclient

import (
	"fmt"
	"net/url"
)

// Action is an operation a client resource may perform.
type Action string

const (
	ActionFind             Action = "find"
	ActionCreate           Action = "create"
	ActionUpdate           Action = "update"
	ActionPatch            Action = "patch"
	ActionDelete           Action = "delete"
	ActionFindByID         Action = "find_by_id"
	ActionDeleteByID       Action = "delete_by_id"
	ActionFindByNamedQuery Action = "find_by_named_query"
)

var allActions = []Action{
	ActionFind,
	ActionCreate,
	ActionUpdate,
	ActionPatch,
	ActionDelete,
	ActionFindByID,
	ActionDeleteByID,
	ActionFindByNamedQuery,
}

// Builder declares the resource tree a Client can navigate.
type Builder struct {
	opts     []Option
	children []*ResourceBuilder
}

func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: opts}
}

// Resource declares a top level resource, reached by following the link of
// the same name from the API root.
func (b *Builder) Resource(name string) *ResourceBuilder {
	rb := newResourceBuilder(name, nil)
	b.children = append(b.children, rb)
	return rb
}

// HAL returns a client rooted at from, the URI of the API index.
func (b *Builder) HAL(from string) (*Client, error) {
	base, err := url.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("parse root uri: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("root uri %q is not absolute", from)
	}
	return newClient(base, b.children, b.opts...), nil
}

// ResourceBuilder declares one resource, the actions it allows and its
// nested resources.
type ResourceBuilder struct {
	name        string
	description string
	actions     map[Action]bool
	parent      *ResourceBuilder
	children    []*ResourceBuilder
}

func newResourceBuilder(name string, parent *ResourceBuilder) *ResourceBuilder {
	actions := make(map[Action]bool, len(allActions))
	for _, a := range allActions {
		actions[a] = true
	}
	return &ResourceBuilder{name: name, actions: actions, parent: parent}
}

// Resource declares a nested resource and returns its builder.
func (rb *ResourceBuilder) Resource(name string) *ResourceBuilder {
	child := newResourceBuilder(name, rb)
	rb.children = append(rb.children, child)
	return child
}

// Parent returns the builder of the enclosing resource, or nil at the top
// level.
func (rb *ResourceBuilder) Parent() *ResourceBuilder {
	return rb.parent
}

func (rb *ResourceBuilder) Name() string { return rb.name }

func (rb *ResourceBuilder) Description(d string) *ResourceBuilder {
	rb.description = d
	return rb
}

// DisableAll disables every action. Individual actions cannot be re-enabled.
func (rb *ResourceBuilder) DisableAll() *ResourceBuilder {
	for a := range rb.actions {
		rb.actions[a] = false
	}
	return rb
}

func (rb *ResourceBuilder) disable(a Action) *ResourceBuilder {
	rb.actions[a] = false
	return rb
}

func (rb *ResourceBuilder) DisableFind() *ResourceBuilder { return rb.disable(ActionFind) }
func (rb *ResourceBuilder) DisableCreate() *ResourceBuilder { return rb.disable(ActionCreate) }
func (rb *ResourceBuilder) DisableUpdate() *ResourceBuilder { return rb.disable(ActionUpdate) }
func (rb *ResourceBuilder) DisablePatch() *ResourceBuilder { return rb.disable(ActionPatch) }
func (rb *ResourceBuilder) DisableDelete() *ResourceBuilder { return rb.disable(ActionDelete) }
func (rb *ResourceBuilder) DisableFindByID() *ResourceBuilder { return rb.disable(ActionFindByID) }
func (rb *ResourceBuilder) DisableDeleteByID() *ResourceBuilder { return rb.disable(ActionDeleteByID) }
func (rb *ResourceBuilder) DisableFindByNamedQuery() *ResourceBuilder {
	return rb.disable(ActionFindByNamedQuery)
}

func (rb *ResourceBuilder) child(name string) (*ResourceBuilder, bool) {
	for _, c := range rb.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}
