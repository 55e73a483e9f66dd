package main

import (
	"github.com/spf13/cobra"

	"HederaDEX-Agent/internal/dex"
)

func newLiquidityCommand(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Open, grow, shrink and inspect concentrated-liquidity positions",
	}
	cmd.AddCommand(
		newAddLiquidityCommand(sess),
		newIncreaseLiquidityCommand(sess),
		newRemoveLiquidityCommand(sess),
		newPositionCommand(sess),
	)
	return cmd
}

func newAddLiquidityCommand(sess *session) *cobra.Command {
	var (
		req            dex.AddLiquidityRequest
		token0, token1 string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Mint a new position (amounts in smallest units)",
		Example: `  hederadexctl liquidity add --token0 0.0.456858 --token1 0.0.1456986 --fee 1500 \
    --tick-lower -887220 --tick-upper 887220 --amount0 1000000 --amount1 100000000 --payable 100000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			req.Network = sess.flags.network
			req.Token0, req.Token1 = dex.AssetRef(token0), dex.AssetRef(token1)
			res, err := a.Dex.AddLiquidity(cmd.Context(), req)
			if err != nil {
				return err
			}
			return sess.printLiquidity(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&token0, "token0", "", "lower-addressed token of the pair")
	f.StringVar(&token1, "token1", "", "higher-addressed token of the pair")
	f.Uint32Var(&req.Fee, "fee", 0, "pool fee tier")
	f.Int32Var(&req.TickLower, "tick-lower", 0, "lower tick, a multiple of the pool tick spacing")
	f.Int32Var(&req.TickUpper, "tick-upper", 0, "upper tick")
	f.StringVar(&req.Amount0Desired, "amount0", "", "desired token0 amount")
	f.StringVar(&req.Amount1Desired, "amount1", "", "desired token1 amount")
	f.StringVar(&req.Amount0Min, "amount0-min", "", "minimum token0 accepted")
	f.StringVar(&req.Amount1Min, "amount1-min", "", "minimum token1 accepted")
	f.StringVar(&req.Payable, "payable", "", "native amount in tinybar attached to the call")
	markRequired(cmd, "token0", "token1", "fee", "tick-lower", "tick-upper", "amount0", "amount1")
	return cmd
}

func newIncreaseLiquidityCommand(sess *session) *cobra.Command {
	var req dex.IncreaseLiquidityRequest
	cmd := &cobra.Command{
		Use:   "increase",
		Short: "Add liquidity to an existing position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			req.Network = sess.flags.network
			res, err := a.Dex.IncreaseLiquidity(cmd.Context(), req)
			if err != nil {
				return err
			}
			return sess.printLiquidity(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.TokenSN, "token-sn", "", "position NFT serial number")
	f.StringVar(&req.Amount0Desired, "amount0", "", "desired token0 amount")
	f.StringVar(&req.Amount1Desired, "amount1", "", "desired token1 amount")
	f.StringVar(&req.Amount0Min, "amount0-min", "", "minimum token0 accepted")
	f.StringVar(&req.Amount1Min, "amount1-min", "", "minimum token1 accepted")
	f.StringVar(&req.Payable, "payable", "", "native amount in tinybar attached to the call")
	markRequired(cmd, "token-sn", "amount0", "amount1")
	return cmd
}

func newRemoveLiquidityCommand(sess *session) *cobra.Command {
	var req dex.RemoveLiquidityRequest
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Decrease a position and collect the owed tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			req.Network = sess.flags.network
			res, err := a.Dex.RemoveLiquidity(cmd.Context(), req)
			if err != nil {
				return err
			}
			return sess.printLiquidity(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.TokenSN, "token-sn", "", "position NFT serial number")
	f.StringVar(&req.Liquidity, "liquidity", "", "liquidity to remove")
	f.StringVar(&req.Amount0Min, "amount0-min", "", "minimum token0 returned")
	f.StringVar(&req.Amount1Min, "amount1-min", "", "minimum token1 returned")
	f.BoolVar(&req.Unwrap, "unwrap", false, "receive wrapped HBAR proceeds as HBAR")
	markRequired(cmd, "token-sn", "liquidity")
	return cmd
}

func newPositionCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "position TOKEN_SN",
		Short: "Read a position from the position manager contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			pos, err := a.Dex.Position(cmd.Context(), sess.flags.network, args[0])
			if err != nil {
				return err
			}
			return sess.print(pos, [][2]string{
				{"token sn", pos.TokenSN},
				{"operator", pos.Operator},
				{"token0", pos.Token0},
				{"token1", pos.Token1},
				{"fee", uintString(pos.Fee)},
				{"ticks", intString(pos.TickLower) + " .. " + intString(pos.TickUpper)},
				{"liquidity", pos.Liquidity},
				{"owed0", pos.TokensOwed0},
				{"owed1", pos.TokensOwed1},
			})
		},
	}
}

func (s *session) printLiquidity(res dex.LiquidityResult) error {
	return s.print(res, append([][2]string{
		{"status", res.Status},
		{"transaction", res.TransactionID},
		{"token sn", res.TokenSN},
		{"liquidity", res.Liquidity},
		{"amount0", res.Amount0},
		{"amount1", res.Amount1},
	}, warningRows(res.Warnings)...))
}
