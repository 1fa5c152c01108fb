package rest

import (
	"net/url"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{(\w+)\}`)

// JoinPath appends elem to base with exactly one "/" between them. Appending
// "/" to a path that already ends with "/" leaves it unchanged.
func JoinPath(base, elem string) string {
	if elem == "" {
		return base
	}
	baseSlash := strings.HasSuffix(base, "/")
	elemSlash := strings.HasPrefix(elem, "/")

	switch {
	case elem == "/":
		if baseSlash {
			return base
		}
		return base + "/"
	case baseSlash && elemSlash:
		return base + elem[1:]
	case !baseSlash && !elemSlash && base != "":
		return base + "/" + elem
	default:
		return base + elem
	}
}

// Expand replaces every {name} token in template with values[name]. Tokens
// without a non-empty value are kept verbatim, so Expand is idempotent.
func Expand(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if v := values[name]; v != "" {
			return v
		}
		return token
	})
}

// expandPath is Expand with every value path-escaped.
func expandPath(template string, values map[string]string) string {
	escaped := make(map[string]string, len(values))
	for k, v := range values {
		escaped[k] = url.PathEscape(v)
	}
	return Expand(template, escaped)
}

func placeholder(name string) string {
	return "{" + name + "}"
}

// URI returns the URI template of the endpoint: the path of every ancestor,
// outermost first, each followed by its {id} placeholder, then the
// endpoint's own path.
//
//	/api/accounts/{account_id}/addresses
func (e *Endpoint) URI() string {
	var chain []*Endpoint
	for p := e.parent; p != nil; p = p.parent {
		chain = append(chain, p)
	}

	uri := ""
	for i := len(chain) - 1; i >= 0; i-- {
		uri = JoinPath(uri, chain[i].path)
		if chain[i].idName != "" {
			uri = JoinPath(uri, placeholder(chain[i].idName))
		}
	}
	return JoinPath(uri, e.path)
}

// ParentURI returns the URI template of the parent endpoint including its
// {id} placeholder, or "" for a root endpoint.
func (e *Endpoint) ParentURI() string {
	if e.parent == nil {
		return ""
	}
	uri := e.parent.URI()
	if e.parent.idName != "" {
		uri = JoinPath(uri, placeholder(e.parent.idName))
	}
	return uri
}

// itemTemplate is the RFC 6570 link template advertised to clients for an
// endpoint addressable by id.
func (e *Endpoint) itemTemplate() string {
	if e.idName == "" {
		return JoinPath(e.URI(), "/")
	}
	return e.URI() + "{/" + e.idName + "}"
}
