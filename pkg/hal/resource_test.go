package hal

import (
	"encoding/json"
	"encoding/xml"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceMarshalJSON(t *testing.T) {
	res := NewResource(map[string]any{"total_count": 12}, "/api/accounts/42/addresses/")
	res.AddLink("next", Link{Href: "/api/accounts/42/addresses/?page=2&page_count=5"})
	res.AddLink("pages", Link{Href: "/api/accounts/42/addresses/?page=0&page_count=5"})
	res.AddLink("pages", Link{Href: "/api/accounts/42/addresses/?page=1&page_count=5"})
	res.Embed("addresses", NewResource(map[string]any{"id": 1}, "/api/accounts/42/addresses/1/"))

	data, err := res.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"href":"/api/accounts/42/addresses/?page=2&page_count=5"`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	links := doc["_links"].(map[string]any)
	assert.Equal(t, map[string]any{"href": "/api/accounts/42/addresses/"}, links["self"])
	assert.IsType(t, map[string]any{}, links["next"], "single link renders as an object")
	assert.Len(t, links["pages"], 2, "repeated rel renders as an array")

	embedded := doc["_embedded"].(map[string]any)
	assert.Len(t, embedded["addresses"], 1)
	assert.EqualValues(t, 12, doc["total_count"])
}

func TestResourceRoundTrip(t *testing.T) {
	src := NewResource(map[string]any{"id": 42, "name": "acme"}, "/api/accounts/42/")
	src.AddLink("addresses", Link{Href: "/api/accounts/42/addresses{/address_id}", Templated: true})
	src.Embed("owners", NewResource(map[string]any{"id": 7}, "/api/users/7/"))

	data, err := json.Marshal(src)
	require.NoError(t, err)

	var got Resource
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "/api/accounts/42/", got.Self())
	l, ok := got.Link("addresses")
	require.True(t, ok)
	assert.True(t, l.Templated)
	assert.Equal(t, "/api/accounts/42/addresses{/address_id}", l.Href)
	require.Len(t, got.Embedded("owners"), 1)
	assert.Equal(t, "/api/users/7/", got.Embedded("owners")[0].Self())
	assert.NotContains(t, got.State(), "_links")

	var account struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, got.Decode(&account))
	assert.Equal(t, 42, account.ID)
	assert.Equal(t, "acme", account.Name)
}

func TestResourceMarshalXML(t *testing.T) {
	res := NewResource(map[string]any{"name": `O'Brien & "Sons" <ltd>`, "note": nil}, "/api/accounts/")
	res.AddLink("next", Link{Href: "/api/accounts/?page=1&page_count=10"})
	res.AddLink("account", Link{Href: "/api/accounts{/account_id}", Templated: true})
	res.Embed("accounts", NewResource(map[string]any{"id": 1}, "/api/accounts/1/"))

	data, err := xml.Marshal(res)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `<resource href="/api/accounts/">`)
	assert.Contains(t, out, `<link rel="next" href="/api/accounts/?page=1&amp;page_count=10"></link>`)
	assert.Contains(t, out, `<link rel="account" href="/api/accounts{/account_id}" templated="true"></link>`)
	assert.Contains(t, out, `<resource rel="accounts" href="/api/accounts/1/"><id>1</id></resource>`)
	assert.Contains(t, out, `<name>O&#39;Brien &amp; &#34;Sons&#34; &lt;ltd&gt;</name>`)
	assert.Contains(t, out, `<note></note>`)
	assert.NotContains(t, out, `rel="self"`)
}

func TestResourceMarshalXMLDriverValues(t *testing.T) {
	id := uuid.MustParse("0b6f6a4e-2f6c-4f53-9a43-5d0a3c9e8f10")
	res := NewResource(map[string]any{
		"balance": pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true},
		"limit":   pgtype.Numeric{},
		"ref":     id,
		"score":   json.Number("4.5"),
		"raw":     json.RawMessage(`"quoted"`),
	}, "/api/accounts/1/")

	data, err := xml.Marshal(res)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `<balance>123.45</balance>`)
	assert.Contains(t, out, `<limit></limit>`)
	assert.Contains(t, out, `<ref>`+id.String()+`</ref>`)
	assert.Contains(t, out, `<score>4.5</score>`)
	assert.Contains(t, out, `<raw>quoted</raw>`)
	assert.NotContains(t, out, `finite`)
}
