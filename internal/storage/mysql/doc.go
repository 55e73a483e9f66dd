// Package mysql persists the off-chain asset registry: the mapping from a
// network's fungible asset ids to their contract addresses. It owns the
// connection pool and applies the embedded schema migrations on open.
package mysql
