// Package rest mounts hypermedia CRUD endpoints for PostgreSQL tables on an
// httputil.Router.
//
// Resources are declared with a fluent builder. Nested resources are scoped
// by the id of their parent and every endpoint links to its children:
//
//	svc := rest.NewService(rest.WithLogger(logger))
//	db := pgx.NewDB(pool)
//
//	accounts := svc.MountAt(router, "/api").
//		Resource("accounts").
//		NamedQuery("closed", map[string]any{"status": "closed"}).
//		ForEntity(db, rest.Table("accounts")).
//		OnConstraintViolation("accounts_email_key", "Email already registered.").
//		Endpoint()
//
//	accounts.MountAt("/").
//		Resource("addresses").
//		ForEntity(db, rest.Table("addresses")).
//		DisableDelete().
//		Endpoint()
//
// This serves /api/accounts/ and /api/accounts/{account_id}/addresses/, and
// every account links to its addresses through the template
// /api/accounts/42/addresses{/address_id}.
//
// Collection requests understand the following query parameters:
//
//	Parameter         | Description
//	------------------|------------------------------------------------
//	?fields=id,name   | Select specific columns
//	?sort=-created,id | Order results, "-" for descending
//	?q=text           | Full-text search (UsesFullText)
//	?page=0           | Zero-based page index
//	?page_count=100   | Page size (default: Resource.PageSize)
//	?col=val          | Filter by column equality
//
// Results are written as application/hal+json or application/hal+xml by
// HALFormatter. Writes honour "Prefer: return=minimal".
package rest
