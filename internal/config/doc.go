// Package config loads the YAML runtime configuration of the HederaDEX
// toolkit: network endpoints and DEX contracts, operator account, gas budgets,
// registry, cache and queue backends.
package config
