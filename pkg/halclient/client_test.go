package halclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/edgeflare/fluentrest/internal/testutil"
	"github.com/edgeflare/fluentrest/pkg/httputil"
	"github.com/edgeflare/fluentrest/pkg/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	*httptest.Server
	store *testutil.Store

	mu    sync.Mutex
	paths []string
}

func (s *server) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *server) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = nil
}

// newServer serves /api/ listing accounts and
// /api/accounts/{account_id}/addresses from a fake store.
func newServer(t *testing.T) *server {
	t.Helper()
	accounts, err := testutil.LoadRows("accounts.json")
	require.NoError(t, err)
	addresses, err := testutil.LoadRows("addresses.json")
	require.NoError(t, err)

	s := &server{store: testutil.NewStore()}
	s.store.
		OnCount(`"accounts"`, int64(len(accounts))).
		OnCount(`"addresses"`, int64(len(addresses))).
		OnQuery(`INSERT INTO "addresses"`, map[string]any{"id": 9, "account_id": "42", "street": "2 Elm St"}).
		OnQuery(`UPDATE "accounts"`, map[string]any{"id": 42, "name": "Acme Inc"}).
		OnExec(`DELETE FROM "addresses"`, 1).
		OnQuery(`FROM "addresses"`, addresses[0]).
		OnQuery(`FROM "accounts"`, accounts[0])

	router := httputil.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.paths = append(s.paths, r.Method+" "+r.URL.RequestURI())
			s.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})

	svc := rest.NewService()
	acc := svc.MountAt(router, "/api").
		Resource("accounts").
		NamedQuery("closed", map[string]any{"status": "closed"}).
		ForEntity(s.store, rest.Table("accounts")).
		Endpoint()
	acc.MountAt("/").
		Resource("addresses").
		ForEntity(s.store, rest.Table("addresses")).
		Endpoint()
	svc.MountAt(router, "/").Resource("api").ForEndpoints(acc).Endpoint()

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

func testClient(t *testing.T, s *server, configure func(b *Builder)) *Client {
	t.Helper()
	b := NewBuilder(WithRetries(0))
	if configure != nil {
		configure(b)
	} else {
		b.Resource("accounts").Resource("addresses")
	}
	c, err := b.HAL(s.URL + "/api/")
	require.NoError(t, err)
	return c
}

func addressesOf(t *testing.T, c *Client, accountID string) *Proxy {
	t.Helper()
	accounts, err := c.Resource("accounts")
	require.NoError(t, err)
	account, err := accounts.Item(accountID)
	require.NoError(t, err)
	addresses, err := account.Resource("addresses")
	require.NoError(t, err)
	return addresses
}

func TestProxyPath(t *testing.T) {
	s := newServer(t)
	addresses := addressesOf(t, testClient(t, s, nil), "42")

	assert.Equal(t, []string{"accounts", "addresses"}, addresses.FollowNames())
	assert.Equal(t, map[string]string{"account_id": "42"}, addresses.TemplateParams())
	assert.Equal(t, "address_id", addresses.IDName())
	assert.Equal(t, "accounts", addresses.Parent().Name())

	item, err := addresses.Item("7")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"account_id": "42", "address_id": "7"}, item.TemplateParams())
	assert.Empty(t, addresses.ID(), "Item does not modify the receiver")
}

func TestFindByIDFollowsLinks(t *testing.T) {
	s := newServer(t)
	addresses := addressesOf(t, testClient(t, s, nil), "42")

	resp, err := addresses.FindByID(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/api/accounts/42/addresses/7/", resp.Resource.Self())
	assert.Equal(t, "1 Main St", resp.Resource.State()["street"])

	assert.Equal(t, []string{
		"GET /api/",
		"GET /api/accounts/42",
		"GET /api/accounts/42/addresses/7",
	}, s.requests())
	assert.Equal(t, `SELECT * FROM "addresses" WHERE "account_id" = $1 AND "id" = $2`, s.store.Last().SQL)
}

func TestFind(t *testing.T) {
	s := newServer(t)
	accounts, err := testClient(t, s, nil).Resource("accounts")
	require.NoError(t, err)

	resp, err := accounts.Find(context.Background(), url.Values{
		"fields": {"id", "name"},
		"status": {"open"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reqs := s.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "GET /api/accounts?fields=id%2Cname&status=open", reqs[1])
	assert.Equal(t, `SELECT "id", "name" FROM "accounts" WHERE "status" = $1 LIMIT $2`, s.store.Last().SQL)

	embedded := resp.Resource.Embedded("accounts")
	require.Len(t, embedded, 1)
	assert.Equal(t, "/api/accounts/42/", embedded[0].Self())
}

func TestFindByNamedQuery(t *testing.T) {
	s := newServer(t)
	accounts, err := testClient(t, s, nil).Resource("accounts")
	require.NoError(t, err)

	resp, err := accounts.FindByNamedQuery(context.Background(), "closed")
	require.NoError(t, err)
	assert.Equal(t, "/api/accounts/closed/", resp.Resource.Self())
	assert.Equal(t, "GET /api/accounts/closed", s.requests()[1])
}

func TestWrites(t *testing.T) {
	s := newServer(t)
	c := testClient(t, s, nil)
	ctx := context.Background()
	addresses := addressesOf(t, c, "42")

	resp, err := addresses.Create(ctx, map[string]any{"street": "2 Elm St"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/accounts/42/addresses/9/", resp.Header.Get("Location"))
	assert.Equal(t, []any{"42", "2 Elm St"}, s.store.Last().Args)

	s.reset()
	resp, err = addresses.DeleteByID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "DELETE /api/accounts/42/addresses/7", s.requests()[2])

	accounts, err := c.Resource("accounts")
	require.NoError(t, err)
	resp, err = accounts.Update(ctx, "42", map[string]any{"name": "Acme Inc"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", resp.Resource.State()["name"])

	s.reset()
	_, err = addresses.Delete(ctx, url.Values{"city": {"Springfield"}})
	require.NoError(t, err)
	assert.Equal(t, "DELETE /api/accounts/42/addresses?city=Springfield", s.requests()[2])
}

func TestHTTPError(t *testing.T) {
	s := newServer(t)
	accounts, err := testClient(t, s, nil).Resource("accounts")
	require.NoError(t, err)

	resp, err := accounts.Patch(context.Background(), "42", map[string]any{})
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, string(statusErr.Body), "non-empty JSON object")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "400", fmt.Sprint(resp.Resource.State()["status_code"]))
	assert.Len(t, s.requests(), 2, "client errors are not retried")
}

func TestDisabledActions(t *testing.T) {
	s := newServer(t)
	c := testClient(t, s, func(b *Builder) {
		accounts := b.Resource("accounts").DisableDelete().DisableFindByNamedQuery()
		accounts.Resource("addresses").DisableAll()
	})
	ctx := context.Background()

	accounts, err := c.Resource("accounts")
	require.NoError(t, err)
	_, err = accounts.Delete(ctx, nil)
	assert.ErrorIs(t, err, ErrActionDisabled)
	_, err = accounts.FindByNamedQuery(ctx, "closed")
	assert.ErrorIs(t, err, ErrActionDisabled)

	addresses := addressesOf(t, c, "42")
	for _, call := range []func() error{
		func() error { _, err := addresses.Find(ctx, nil); return err },
		func() error { _, err := addresses.Create(ctx, map[string]any{}); return err },
		func() error { _, err := addresses.FindByID(ctx, "7"); return err },
		func() error { _, err := addresses.Update(ctx, "7", map[string]any{}); return err },
		func() error { _, err := addresses.Patch(ctx, "7", map[string]any{}); return err },
		func() error { _, err := addresses.DeleteByID(ctx, "7"); return err },
	} {
		assert.ErrorIs(t, call(), ErrActionDisabled)
	}
	assert.Empty(t, s.requests())
}

func TestArgumentErrors(t *testing.T) {
	s := newServer(t)
	c := testClient(t, s, func(b *Builder) {
		b.Resource("accounts")
		b.Resource("invoices")
	})
	ctx := context.Background()

	_, err := c.Resource("payments")
	assert.ErrorIs(t, err, ErrUnknownResource)

	accounts, err := c.Resource("accounts")
	require.NoError(t, err)
	_, err = accounts.Resource("addresses")
	assert.ErrorIs(t, err, ErrUnknownResource)
	_, err = accounts.Item("")
	assert.ErrorIs(t, err, ErrIDRequired)
	_, err = accounts.FindByID(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
	_, err = accounts.Update(ctx, "42", nil)
	assert.ErrorIs(t, err, ErrDataRequired)
	_, err = accounts.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrDataRequired)
	assert.Empty(t, s.requests())

	invoices, err := c.Resource("invoices")
	require.NoError(t, err)
	_, err = invoices.Find(ctx, nil)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestRootAndResourceAt(t *testing.T) {
	s := newServer(t)
	c := testClient(t, s, nil)
	ctx := context.Background()

	root, err := c.Root(ctx)
	require.NoError(t, err)
	link, ok := root.Resource.Link("accounts")
	require.True(t, ok)
	assert.True(t, link.Templated)

	resp, err := c.ResourceAt(ctx, link.Href, map[string]string{"account_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/accounts/42/", resp.Resource.Self())
	assert.Equal(t, "GET /api/accounts/42", s.requests()[1])

	_, err = NewBuilder().HAL("/api/")
	assert.Error(t, err, "root uri must be absolute")
}

func TestNotHAL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	c, err := NewBuilder(WithHeader("X-Tenant", "acme")).HAL(srv.URL)
	require.NoError(t, err)
	resp, err := c.Root(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resp.Resource.State())
	assert.Equal(t, "plain text", string(resp.Body))
}
