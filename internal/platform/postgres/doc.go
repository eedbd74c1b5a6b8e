// Package postgres implements the store interfaces on PostgreSQL. It owns
// the schema migrations, maps driver errors onto the store package's
// sentinel errors and binds stores to a shared transaction through TxRunner.
package postgres
