package main

import (
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"HederaDEX-Agent/internal/dexapi"
)

func newPoolsCommand(sess *session) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List the pools indexed by the DEX API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			pools, err := a.Metadata.Pools(cmd.Context(), a.Config.Network)
			if err != nil {
				return err
			}
			pools = filterPools(pools, token)
			if sess.flags.asJSON {
				return writeJSON(sess.out, pools)
			}
			renderPools(sess.out, pools)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "only pools containing this token id or symbol")
	return cmd
}

func newPositionsCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "positions ACCOUNT_ID",
		Short: "List the liquidity positions owned by an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			positions, err := a.Metadata.Positions(cmd.Context(), a.Config.Network, args[0])
			if err != nil {
				return err
			}
			if sess.flags.asJSON {
				return writeJSON(sess.out, positions)
			}
			renderPositions(sess.out, args[0], positions)
			return nil
		},
	}
}

func filterPools(pools []dexapi.Pool, token string) []dexapi.Pool {
	token = strings.TrimSpace(token)
	if token == "" {
		return pools
	}
	match := func(t dexapi.Token) bool {
		return t.ID == token || strings.EqualFold(t.Symbol, token)
	}
	out := pools[:0:0]
	for _, p := range pools {
		if match(p.TokenA) || match(p.TokenB) {
			out = append(out, p)
		}
	}
	return out
}

func renderPools(w io.Writer, pools []dexapi.Pool) {
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Contract", "Pair", "Fee", "Tick", "Liquidity"})
	for _, p := range pools {
		t.AppendRow(table.Row{p.ID, p.ContractID, p.TokenA.Symbol + "/" + p.TokenB.Symbol, p.Fee, p.TickCurrent, p.Liquidity})
	}
	t.SetCaption("%d pools", len(pools))
	t.Render()
}

func renderPositions(w io.Writer, account string, positions []dexapi.PositionNFT) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(account)
	t.AppendHeader(table.Row{"Serial", "Pair", "Fee", "Ticks", "Liquidity", "Owed0", "Owed1"})
	for _, p := range positions {
		if p.Deleted {
			continue
		}
		t.AppendRow(table.Row{
			p.TokenSN,
			p.Token0.Symbol + "/" + p.Token1.Symbol,
			p.Fee,
			intString(p.TickLower) + " .. " + intString(p.TickUpper),
			p.Liquidity,
			p.TokensOwed0,
			p.TokensOwed1,
		})
	}
	t.Render()
}
