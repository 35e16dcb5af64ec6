// Package pg provides PostgreSQL connection management built on pgx/v5:
// pooled connections with startup retry, goose-based schema migrations and
// error classification helpers shared by the storage adapters.
package pg
