package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StatusSuccess is the ledger status reported for a finalized, successful transaction.
const StatusSuccess = "SUCCESS"

// Contract identifies a smart contract by ledger entity id ("0.0.x") and by
// its 20-byte contract-style address.
type Contract struct {
	ID      string
	Address common.Address
}

// IsZero reports whether the contract is unset.
func (c Contract) IsZero() bool {
	return c.ID == "" && c.Address == (common.Address{})
}

// ChainSnapshot represents summarized network metadata for health reporting.
type ChainSnapshot struct {
	Network     string `json:"network"`
	ChainID     string `json:"chain_id"`
	BlockNumber string `json:"block_number"`
}

// ContractCaller performs read-only contract calls. No transaction is
// produced and no gas is charged to the caller.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// ExecuteRequest describes a contract execution transaction.
type ExecuteRequest struct {
	Contract Contract
	Gas      uint64
	// Payable is the native-coin amount in smallest units attached to the call. Nil or zero means none.
	Payable *big.Int
	Data    []byte
	Memo    string
}

// TransactionRecord is the finalized outcome of a submitted transaction.
type TransactionRecord struct {
	Status        string
	TransactionID string
	Result        []byte
}

// Succeeded reports whether the ledger finalized the transaction successfully.
func (r TransactionRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// PendingTransaction is the handle returned by a submission.
type PendingTransaction interface {
	TransactionID() string
	Record(ctx context.Context) (TransactionRecord, error)
}

// TransactionSubmitter signs and submits contract executions on behalf of the operator account.
type TransactionSubmitter interface {
	Submit(ctx context.Context, req ExecuteRequest) (PendingTransaction, error)
	// OperatorAddress is the contract-style address of the signing account.
	OperatorAddress() common.Address
}
