// Package web3 houses ledger connectivity: the read-only JSON-RPC caller used
// for contract simulation, the ledger transaction service used to submit
// contract executions, and the per-network definitions that tell both where
// the DEX contracts live.
package web3
