// Package dex implements the swap and liquidity pipelines of a concentrated
// liquidity DEX on the Hedera ledger: amount normalisation, asset address
// resolution, calldata and multicall encoding, read-only quotes, exact-input
// swaps and position management.
//
// Every operation is an independent request/response call. The only shared
// state lives in the Backends implementation, which owns the network
// connections.
package dex
