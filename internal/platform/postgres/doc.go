// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx stdlib driver. It also embeds the schema migrations
// that the worker can apply with goose.
package postgres
