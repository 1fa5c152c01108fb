// Package hal implements the Hypertext Application Language media types
// (application/hal+json and application/hal+xml).
//
// A Resource carries plain state, named links and embedded resources:
//
//	res := hal.NewResource(map[string]any{"id": 42}, "/api/accounts/42/")
//	res.AddLink("addresses", hal.Link{Href: "/api/accounts/42/addresses{/address_id}", Templated: true})
//	json.NewEncoder(w).Encode(res)
//
// Link relations with a single link serialize as an object, relations with
// several links as an array. Embedded relations always serialize as arrays.
package hal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/mitchellh/mapstructure"
)

const (
	MediaTypeJSON = "application/hal+json"
	MediaTypeXML  = "application/hal+xml"

	relSelf     = "self"
	keyLinks    = "_links"
	keyEmbedded = "_embedded"
)

// Link is a HAL link object.
type Link struct {
	Href      string `json:"href" mapstructure:"href"`
	Templated bool   `json:"templated,omitempty" mapstructure:"templated"`
	Title     string `json:"title,omitempty" mapstructure:"title"`
}

// Resource is a HAL resource.
type Resource struct {
	state    map[string]any
	links    map[string][]Link
	embedded map[string][]*Resource
}

// NewResource returns a resource with the given state and self link. A nil
// state is treated as empty and an empty selfHref adds no self link.
func NewResource(state map[string]any, selfHref string) *Resource {
	r := &Resource{
		state:    make(map[string]any, len(state)),
		links:    make(map[string][]Link),
		embedded: make(map[string][]*Resource),
	}
	maps.Copy(r.state, state)
	if selfHref != "" {
		r.links[relSelf] = []Link{{Href: selfHref}}
	}
	return r
}

// AddLink appends l to the links of rel.
func (r *Resource) AddLink(rel string, l Link) *Resource {
	r.links[rel] = append(r.links[rel], l)
	return r
}

// Embed appends resources to the embedded relation rel.
func (r *Resource) Embed(rel string, resources ...*Resource) *Resource {
	r.embedded[rel] = append(r.embedded[rel], resources...)
	return r
}

// Set assigns a state property.
func (r *Resource) Set(key string, value any) *Resource {
	r.state[key] = value
	return r
}

// State returns the resource properties without _links and _embedded.
func (r *Resource) State() map[string]any {
	return r.state
}

// Self returns the href of the self link, or "" if there is none.
func (r *Resource) Self() string {
	if l, ok := r.Link(relSelf); ok {
		return l.Href
	}
	return ""
}

// Link returns the first link of rel.
func (r *Resource) Link(rel string) (Link, bool) {
	if ls := r.links[rel]; len(ls) > 0 {
		return ls[0], true
	}
	return Link{}, false
}

// Links returns all links of rel.
func (r *Resource) Links(rel string) []Link {
	return r.links[rel]
}

// Rels returns the link relations of the resource in sorted order.
func (r *Resource) Rels() []string {
	return slices.Sorted(maps.Keys(r.links))
}

// Embedded returns the resources embedded under rel.
func (r *Resource) Embedded(rel string) []*Resource {
	return r.embedded[rel]
}

// Decode copies the resource state into v, which must be a pointer to a
// struct or map. Struct fields are matched by their json tag.
func (r *Resource) Decode(v any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return fmt.Errorf("hal: %w", err)
	}
	if err := decoder.Decode(r.state); err != nil {
		return fmt.Errorf("hal: decode state: %w", err)
	}
	return nil
}

func (r *Resource) toMap() map[string]any {
	out := make(map[string]any, len(r.state)+2)
	maps.Copy(out, r.state)

	if len(r.links) > 0 {
		links := make(map[string]any, len(r.links))
		for rel, ls := range r.links {
			if len(ls) == 1 {
				links[rel] = ls[0]
			} else {
				links[rel] = ls
			}
		}
		out[keyLinks] = links
	}

	if len(r.embedded) > 0 {
		embedded := make(map[string]any, len(r.embedded))
		for rel, rs := range r.embedded {
			items := make([]map[string]any, len(rs))
			for i, e := range rs {
				items[i] = e.toMap()
			}
			embedded[rel] = items
		}
		out[keyEmbedded] = embedded
	}
	return out
}

// MarshalJSON encodes the resource as application/hal+json. URLs are not
// HTML-escaped.
func (r *Resource) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.toMap()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes an application/hal+json document.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	parsed, err := fromMap(doc)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func fromMap(doc map[string]any) (*Resource, error) {
	r := NewResource(nil, "")

	if raw, ok := doc[keyLinks].(map[string]any); ok {
		for rel, v := range raw {
			switch v := v.(type) {
			case map[string]any:
				l, err := decodeLink(v)
				if err != nil {
					return nil, fmt.Errorf("hal: link %q: %w", rel, err)
				}
				r.AddLink(rel, l)
			case []any:
				for _, item := range v {
					m, ok := item.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("hal: link %q: unexpected %T", rel, item)
					}
					l, err := decodeLink(m)
					if err != nil {
						return nil, fmt.Errorf("hal: link %q: %w", rel, err)
					}
					r.AddLink(rel, l)
				}
			}
		}
	}

	if raw, ok := doc[keyEmbedded].(map[string]any); ok {
		for rel, v := range raw {
			var items []any
			switch v := v.(type) {
			case []any:
				items = v
			case map[string]any:
				items = []any{v}
			}
			for _, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("hal: embedded %q: unexpected %T", rel, item)
				}
				e, err := fromMap(m)
				if err != nil {
					return nil, err
				}
				r.Embed(rel, e)
			}
		}
	}

	for k, v := range doc {
		if k == keyLinks || k == keyEmbedded {
			continue
		}
		r.state[k] = v
	}
	return r, nil
}

func decodeLink(m map[string]any) (Link, error) {
	var l Link
	err := mapstructure.Decode(m, &l)
	return l, err
}
