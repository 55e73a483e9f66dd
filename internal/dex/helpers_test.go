package dex

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"HederaDEX-Agent/internal/web3"
)

var (
	testWHBAR    = common.HexToAddress("0x000000000000000000000000000000000014a04a")
	testUSDC     = common.HexToAddress("0x0000000000000000000000000000000000001549")
	testSAUCE    = common.HexToAddress("0x0000000000000000000000000000000000120f46")
	testOperator = common.HexToAddress("0x0000000000000000000000000000000000000002")
	testNow      = time.Unix(1_700_000_000, 0)
)

func testDefinition() web3.NetworkDefinition {
	return web3.NetworkDefinition{
		WrappedNative: testWHBAR.Hex(),
		Contracts: web3.ContractSet{
			Quoter:          "0.0.1155",
			Router:          "0.0.1153",
			PositionManager: "0.0.1154",
		},
		Assets: map[string]string{
			"0.0.5449":    testUSDC.Hex(),
			"0.0.1183558": testSAUCE.Hex(),
		},
	}
}

type fakeMetadata struct {
	mu       sync.Mutex
	decimals map[string]string
	err      error
	calls    int
}

func (f *fakeMetadata) Decimals(_ context.Context, _ string, assetID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.decimals[assetID]
	if !ok {
		return "", errors.New("unknown token")
	}
	return v, nil
}

type fakeCaller struct {
	mu    sync.Mutex
	to    []common.Address
	data  [][]byte
	reply func(data []byte) ([]byte, error)
}

func (f *fakeCaller) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.data = append(f.data, data)
	return f.reply(data)
}

func (f *fakeCaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

type fakePending struct {
	record web3.TransactionRecord
	err    error
}

func (p fakePending) TransactionID() string { return p.record.TransactionID }
func (p fakePending) Record(context.Context) (web3.TransactionRecord, error) {
	return p.record, p.err
}

type fakeSubmitter struct {
	mu        sync.Mutex
	requests  []web3.ExecuteRequest
	record    web3.TransactionRecord
	submitErr error
	recordErr error
}

func (f *fakeSubmitter) Submit(_ context.Context, req web3.ExecuteRequest) (web3.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return fakePending{record: f.record, err: f.recordErr}, nil
}

func (f *fakeSubmitter) OperatorAddress() common.Address { return testOperator }

func (f *fakeSubmitter) last(t *testing.T) web3.ExecuteRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "no transaction submitted")
	return f.requests[len(f.requests)-1]
}

type fakeBackends struct {
	caller    *fakeCaller
	submitter *fakeSubmitter
}

func (b fakeBackends) Caller(context.Context, string) (web3.ContractCaller, error) {
	return b.caller, nil
}

func (b fakeBackends) Submitter(context.Context, string) (web3.TransactionSubmitter, error) {
	return b.submitter, nil
}

type fixture struct {
	deps       Dependencies
	deployment *Deployment
	caller     *fakeCaller
	submitter  *fakeSubmitter
	metadata   *fakeMetadata
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dep, err := NewDeployment("testnet", testDefinition())
	require.NoError(t, err)
	registry, err := NewStaticRegistry(map[string]web3.NetworkDefinition{"testnet": testDefinition()})
	require.NoError(t, err)

	f := &fixture{
		deployment: dep,
		caller:     &fakeCaller{},
		submitter:  &fakeSubmitter{},
		metadata:   &fakeMetadata{decimals: map[string]string{"0.0.5449": "6", "0.0.1183558": "6"}},
	}
	f.deps = Dependencies{
		Deployments: Deployments{"testnet": dep},
		Backends:    fakeBackends{caller: f.caller, submitter: f.submitter},
		Registry:    registry,
		Metadata:    f.metadata,
		Clock:       func() time.Time { return testNow },
	}
	return f
}

// quoteReply answers quoteExactInput / quoteExactOutput with amount.
func (f *fixture) quoteReply(t *testing.T, amount *big.Int) {
	t.Helper()
	f.caller.reply = func(data []byte) ([]byte, error) {
		method, err := f.deployment.QuoterABI.MethodById(data[:4])
		require.NoError(t, err)
		return method.Outputs.Pack(amount, []*big.Int{big.NewInt(1)}, []uint32{1}, big.NewInt(90_000))
	}
}

// multicallResult builds the record bytes of a multicall whose inner calls
// returned the given values.
func multicallResult(t *testing.T, enc *Encoder, inner ...[]byte) []byte {
	t.Helper()
	out, err := enc.abi.Methods["multicall"].Outputs.Pack(inner)
	require.NoError(t, err)
	return out
}

func packOutputs(t *testing.T, enc *Encoder, method string, values ...any) []byte {
	t.Helper()
	out, err := enc.abi.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

// decodeBatch splits a submitted multicall payload into method names and
// their argument values.
func decodeBatch(t *testing.T, enc *Encoder, payload []byte) ([]string, [][]any) {
	t.Helper()
	multicall := enc.abi.Methods["multicall"]
	require.Equal(t, multicall.ID, payload[:4])
	values, err := multicall.Inputs.Unpack(payload[4:])
	require.NoError(t, err)
	calls := values[0].([][]byte)

	names := make([]string, 0, len(calls))
	args := make([][]any, 0, len(calls))
	for _, call := range calls {
		method, err := enc.abi.MethodById(call[:4])
		require.NoError(t, err)
		unpacked, err := method.Inputs.Unpack(call[4:])
		require.NoError(t, err)
		names = append(names, method.Name)
		args = append(args, unpacked)
	}
	return names, args
}
