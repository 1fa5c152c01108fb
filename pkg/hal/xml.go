package hal

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"time"
)

// MarshalXML encodes the resource as application/hal+xml:
//
//	<resource href="/api/accounts/">
//	  <link rel="next" href="/api/accounts/?page=1&amp;page_count=10"/>
//	  <resource rel="accounts" href="/api/accounts/1/"><id>1</id></resource>
//	  <total_count>25</total_count>
//	</resource>
//
// Attribute and text values are escaped by the encoder.
func (r *Resource) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return r.encodeXML(e, "")
}

func (r *Resource) encodeXML(e *xml.Encoder, rel string) error {
	start := xml.StartElement{Name: xml.Name{Local: "resource"}}
	if rel != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "rel"}, Value: rel})
	}
	if self := r.Self(); self != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "href"}, Value: self})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	for _, linkRel := range r.Rels() {
		if linkRel == relSelf {
			continue
		}
		for _, l := range r.links[linkRel] {
			if err := encodeLinkXML(e, linkRel, l); err != nil {
				return err
			}
		}
	}

	for _, embeddedRel := range slices.Sorted(maps.Keys(r.embedded)) {
		for _, child := range r.embedded[embeddedRel] {
			if err := child.encodeXML(e, embeddedRel); err != nil {
				return err
			}
		}
	}

	for _, key := range slices.Sorted(maps.Keys(r.state)) {
		if err := encodeValueXML(e, key, r.state[key]); err != nil {
			return err
		}
	}

	return e.EncodeToken(start.End())
}

func encodeLinkXML(e *xml.Encoder, rel string, l Link) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "link"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "rel"}, Value: rel},
			{Name: xml.Name{Local: "href"}, Value: l.Href},
		},
	}
	if l.Templated {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "templated"}, Value: "true"})
	}
	if l.Title != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "title"}, Value: l.Title})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func encodeValueXML(e *xml.Encoder, name string, value any) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}

	switch v := value.(type) {
	case nil:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		return e.EncodeToken(start.End())
	case map[string]any:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		for _, key := range slices.Sorted(maps.Keys(v)) {
			if err := encodeValueXML(e, key, v[key]); err != nil {
				return err
			}
		}
		return e.EncodeToken(start.End())
	case []any:
		for _, item := range v {
			if err := encodeValueXML(e, name, item); err != nil {
				return err
			}
		}
		return nil
	case []byte:
		return e.EncodeElement(string(v), start)
	case time.Time:
		return e.EncodeElement(v.Format(time.RFC3339Nano), start)
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		return e.EncodeElement(string(text), start)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		return encodeValueXML(e, name, dv)
	case json.Marshaler:
		raw, err := v.MarshalJSON()
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		var text string
		if json.Unmarshal(raw, &text) != nil {
			text = string(raw)
		}
		return e.EncodeElement(text, start)
	default:
		return e.EncodeElement(fmt.Sprint(v), start)
	}
}
