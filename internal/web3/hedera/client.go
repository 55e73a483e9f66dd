package hedera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	hsdk "github.com/hashgraph/hedera-sdk-go/v2"

	"HederaDEX-Agent/internal/web3"
)

// Config describes the operator account used to sign contract executions.
type Config struct {
	Network        string
	OperatorID     string
	OperatorKey    string
	RequestTimeout time.Duration
}

// Client submits ContractExecute transactions through the consensus nodes of
// a named network.
type Client struct {
	network  string
	operator hsdk.AccountID
	address  common.Address

	mu     sync.Mutex
	client *hsdk.Client
}

// NewClient builds a signing client. The SDK connects lazily on first submission.
func NewClient(cfg Config) (*Client, error) {
	network := strings.ToLower(strings.TrimSpace(cfg.Network))
	if network == "" {
		return nil, errors.New("未指定账本网络")
	}
	if strings.TrimSpace(cfg.OperatorID) == "" || strings.TrimSpace(cfg.OperatorKey) == "" {
		return nil, errors.New("未配置运营账户或私钥")
	}
	operator, err := hsdk.AccountIDFromString(strings.TrimSpace(cfg.OperatorID))
	if err != nil {
		return nil, fmt.Errorf("解析运营账户失败: %w", err)
	}
	key, err := hsdk.PrivateKeyFromString(strings.TrimSpace(cfg.OperatorKey))
	if err != nil {
		return nil, fmt.Errorf("解析运营私钥失败: %w", err)
	}
	client, err := hsdk.ClientForName(network)
	if err != nil {
		return nil, fmt.Errorf("初始化账本网络 %s 失败: %w", network, err)
	}
	client.SetOperator(operator, key)
	if cfg.RequestTimeout > 0 {
		timeout := cfg.RequestTimeout
		client.SetRequestTimeout(&timeout)
	}
	return &Client{
		network:  network,
		operator: operator,
		address:  common.HexToAddress(operator.ToSolidityAddress()),
		client:   client,
	}, nil
}

// OperatorAddress is the long-zero contract address of the operator account.
func (c *Client) OperatorAddress() common.Address {
	return c.address
}

// Submit signs and sends a ContractExecute transaction. It returns once the
// node accepted the transaction; the outcome is read through Record.
func (c *Client) Submit(ctx context.Context, req web3.ExecuteRequest) (web3.PendingTransaction, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil, errors.New("账本客户端已关闭")
	}

	contractID, err := ContractID(req.Contract)
	if err != nil {
		return nil, err
	}
	tx := hsdk.NewContractExecuteTransaction().
		SetContractID(contractID).
		SetGas(req.Gas).
		SetFunctionParameters(req.Data)
	if req.Payable != nil && req.Payable.Sign() > 0 {
		if !req.Payable.IsInt64() {
			return nil, fmt.Errorf("附带金额 %s 超出范围", req.Payable.String())
		}
		tx.SetPayableAmount(hsdk.HbarFromTinybar(req.Payable.Int64()))
	}
	if req.Memo != "" {
		tx.SetTransactionMemo(req.Memo)
	}

	resp, err := await(ctx, func() (hsdk.TransactionResponse, error) {
		return tx.Execute(client)
	})
	if err != nil {
		return nil, fmt.Errorf("提交合约交易失败: %w", err)
	}
	return &pending{client: client, resp: resp}, nil
}

// Close releases the SDK connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
}

type pending struct {
	client *hsdk.Client
	resp   hsdk.TransactionResponse
}

func (p *pending) TransactionID() string {
	return p.resp.TransactionID.String()
}

// Record waits for consensus and returns the finalized status and the raw
// function result. A non-success receipt is not an error here.
func (p *pending) Record(ctx context.Context) (web3.TransactionRecord, error) {
	txID := p.TransactionID()
	record, err := await(ctx, func() (hsdk.TransactionRecord, error) {
		return p.resp.GetRecord(p.client)
	})
	if err != nil {
		var statusErr hsdk.ErrHederaReceiptStatus
		if errors.As(err, &statusErr) {
			return web3.TransactionRecord{Status: statusErr.Status.String(), TransactionID: txID}, nil
		}
		return web3.TransactionRecord{TransactionID: txID}, fmt.Errorf("获取交易记录失败: %w", err)
	}

	out := web3.TransactionRecord{
		Status:        record.Receipt.Status.String(),
		TransactionID: txID,
	}
	if record.CallResult != nil {
		out.Result = record.CallResult.ContractCallResult
	}
	return out, nil
}

// await runs a blocking SDK call and gives up when ctx ends. The SDK call
// itself keeps running until its own request timeout.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

var _ web3.TransactionSubmitter = (*Client)(nil)
