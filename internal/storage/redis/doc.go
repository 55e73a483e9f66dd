// Package redis caches token decimals in Redis in front of a slower metadata
// source such as the mirror node. Decimals never change once a token exists,
// so entries are written without expiry unless a TTL is configured.
package redis
