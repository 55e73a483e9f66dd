package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"HederaDEX-Agent/internal/dex"
	"HederaDEX-Agent/internal/dexapi"
)

func TestCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"quote"},
		{"swap"},
		{"liquidity", "add"},
		{"liquidity", "increase"},
		{"liquidity", "remove"},
		{"liquidity", "position"},
		{"pools"},
		{"positions"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestSwapRequiresFlags(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"swap", "--in", "HBAR"})

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), `required flag(s) "amount", "out" not set`)
}

func TestPrintSkipsEmptyRowsAndSupportsJSON(t *testing.T) {
	var buf bytes.Buffer
	sess := &session{flags: &globalFlags{}, out: &buf}

	require.NoError(t, sess.print(dex.Quote{AmountIn: "100", AmountOut: "5"}, [][2]string{
		{"amount in", "100"},
		{"amount out", "5"},
		{"gas estimate", ""},
	}))
	require.Contains(t, buf.String(), "amount out")
	require.NotContains(t, buf.String(), "gas estimate")

	buf.Reset()
	sess.flags.asJSON = true
	require.NoError(t, sess.print(dex.Quote{AmountIn: "100", AmountOut: "5"}, nil))
	require.JSONEq(t, `{"amount_in":"100","amount_out":"5"}`, buf.String())
}

func TestFilterAndRenderPools(t *testing.T) {
	pools := []dexapi.Pool{
		{ID: 2, ContractID: "0.0.2", TokenA: dexapi.Token{ID: "0.0.1456986", Symbol: "WHBAR"}, TokenB: dexapi.Token{ID: "0.0.456858", Symbol: "USDC"}, Fee: 1500},
		{ID: 1, ContractID: "0.0.1", TokenA: dexapi.Token{ID: "0.0.731861", Symbol: "SAUCE"}, TokenB: dexapi.Token{ID: "0.0.1456986", Symbol: "WHBAR"}, Fee: 3000},
		{ID: 3, ContractID: "0.0.3", TokenA: dexapi.Token{ID: "0.0.731861", Symbol: "SAUCE"}, TokenB: dexapi.Token{ID: "0.0.456858", Symbol: "USDC"}, Fee: 3000},
	}

	require.Len(t, filterPools(pools, ""), 3)
	require.Len(t, filterPools(pools, "usdc"), 2)
	require.Len(t, filterPools(pools, "0.0.1456986"), 2)
	require.Empty(t, filterPools(pools, "0.0.9"))

	var buf bytes.Buffer
	renderPools(&buf, filterPools(pools, "WHBAR"))
	text := buf.String()
	require.Contains(t, text, "SAUCE/WHBAR")
	require.Contains(t, text, "2 pools")
	require.Less(t, strings.Index(text, "0.0.1"), strings.Index(text, "0.0.2"), "pools sorted by id")
}

func TestRenderPositionsHidesDeleted(t *testing.T) {
	var buf bytes.Buffer
	renderPositions(&buf, "0.0.1234", []dexapi.PositionNFT{
		{TokenSN: 77, Token0: dexapi.Token{Symbol: "USDC"}, Token1: dexapi.Token{Symbol: "WHBAR"}, TickLower: -60, TickUpper: 60, Liquidity: "1414"},
		{TokenSN: 78, Deleted: true, Liquidity: "9"},
	})
	require.Contains(t, buf.String(), "USDC/WHBAR")
	require.Contains(t, buf.String(), "-60 .. 60")
	require.NotContains(t, buf.String(), "78")
}
