package main

import (
	"github.com/spf13/cobra"

	"HederaDEX-Agent/internal/dex"
)

func newQuoteCommand(sess *session) *cobra.Command {
	var (
		req         dex.QuoteRequest
		in, out     string
		exactOutput bool
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Simulate a single-pool swap without submitting a transaction",
		Example: `  hederadexctl quote --in HBAR --out 0.0.456858 --amount 10
  hederadexctl quote --in HBAR --out USDC --amount 5 --exact-output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			req.Network = sess.flags.network
			req.AssetIn, req.AssetOut = dex.AssetRef(in), dex.AssetRef(out)

			var quote dex.Quote
			if exactOutput {
				quote, err = a.Dex.QuoteExactOutput(cmd.Context(), req)
			} else {
				quote, err = a.Dex.Quote(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return sess.print(quote, [][2]string{
				{"amount in", quote.AmountIn},
				{"amount out", quote.AmountOut},
				{"gas estimate", quote.GasEstimate},
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "asset sold: HBAR, a token id (0.0.x) or a configured symbol")
	f.StringVar(&out, "out", "", "asset bought")
	f.StringVar(&req.Amount, "amount", "", "human-scale amount (input, or output with --exact-output)")
	f.Uint32Var(&req.Fee, "fee", 0, "pool fee tier in hundredths of a bip (default from config)")
	f.BoolVar(&exactOutput, "exact-output", false, "treat --amount as the desired output")
	markRequired(cmd, "in", "out", "amount")
	return cmd
}

func newSwapCommand(sess *session) *cobra.Command {
	var (
		req      dex.SwapRequest
		in, out  string
		slippage float64
	)
	cmd := &cobra.Command{
		Use:     "swap",
		Short:   "Swap an exact input amount through a single pool",
		Example: `  hederadexctl swap --in HBAR --out 0.0.456858 --amount 10 --slippage 0.005`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := sess.open(cmd)
			if err != nil {
				return err
			}
			req.Network = sess.flags.network
			req.AssetIn, req.AssetOut = dex.AssetRef(in), dex.AssetRef(out)
			req.SlippageTolerance = a.Dex.DefaultSlippage()
			if cmd.Flags().Changed("slippage") {
				req.SlippageTolerance = slippage
			}
			res, err := a.Dex.SwapExactInput(cmd.Context(), req)
			if err != nil {
				return err
			}
			return sess.print(res, append([][2]string{
				{"status", res.Status},
				{"transaction", res.TransactionID},
				{"amount in", res.AmountIn},
				{"amount out", res.AmountOut},
				{"minimum out", res.AmountOutMinimum},
				{"payable", res.Payable},
				{"unwrapped", boolString(res.Unwrapped)},
			}, warningRows(res.Warnings)...))
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "asset sold")
	f.StringVar(&out, "out", "", "asset bought")
	f.StringVar(&req.Amount, "amount", "", "human-scale input amount")
	f.Uint32Var(&req.Fee, "fee", 0, "pool fee tier (default from config)")
	f.Float64Var(&slippage, "slippage", 0, "slippage tolerance as a fraction, e.g. 0.01 (default from config)")
	markRequired(cmd, "in", "out", "amount")
	return cmd
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}

func warningRows(warnings []string) [][2]string {
	rows := make([][2]string, 0, len(warnings))
	for _, w := range warnings {
		rows = append(rows, [2]string{"warning", w})
	}
	return rows
}

func boolString(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
