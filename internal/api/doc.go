// Package api exposes the HTTP interface of the DEX agent: job submission and
// inspection, read-only quotes, pool and position listings, health and
// metrics.
package api
