package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/greeks"
)

func greeksCmd() *cobra.Command {
	var (
		spot       float64
		strikes    []string
		expiry     string
		put        bool
		volatility float64
		rate       float64
	)

	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute Greeks for a vanilla, spread, butterfly or condor",
		Long: `Compute Black-Scholes Greeks for an option structure.

The structure follows from the number of strikes:
  1 Vanilla, 2 Spread, 3 Butterfly, 4 Condor

Examples:
  # ATM call
  optionbook greeks --spot 95000 --strikes 95000 --expiry 2026-01-30

  # Put spread with a custom volatility
  optionbook greeks --spot 3000 --strikes 3000,2800 --expiry 1769760000 --put --vol 0.8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := parseStrikes(strikes)
			if err != nil {
				return err
			}
			exp, err := parseExpiry(expiry)
			if err != nil {
				return err
			}

			params := cfg.Pricing
			if cmd.Flags().Changed("vol") {
				params.Volatility = volatility
			}
			if cmd.Flags().Changed("rate") {
				params.RiskFreeRate = rate
			}
			pricer := greeks.NewPricer(params)

			in := greeks.Inputs{Spot: spot, Strikes: ks, Expiry: exp, IsCall: !put}
			g, evalErr := pricer.Evaluate(in)
			if evalErr != nil {
				logger.Warn("greeks undefined, reporting zeros", zap.Error(evalErr))
			}

			structure := greeks.StructureForLegs(len(ks))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s  spot %s  T %.6f y  vol %.2f%%  r %.2f%%\n",
				structure,
				flavor(!put),
				fmtNum(spot, 2),
				greeks.TimeToExpiry(exp, time.Now()),
				params.Volatility*100,
				params.RiskFreeRate*100,
			)

			table := newTable(out, "Delta", "Gamma", "Vega", "Theta", "IV %")
			table.Append(append(greeksCells(&g), fmtNum(g.IV, 2)))
			table.Render()
			return nil
		},
	}

	cmd.Flags().Float64Var(&spot, "spot", 0, "underlying spot price")
	cmd.Flags().StringSliceVar(&strikes, "strikes", nil, "strikes in leg order, comma separated")
	cmd.Flags().StringVar(&expiry, "expiry", "", "expiry as unix seconds, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().BoolVar(&put, "put", false, "price puts instead of calls")
	cmd.Flags().Float64Var(&volatility, "vol", greeks.DefaultVolatility, "override annualized volatility")
	cmd.Flags().Float64Var(&rate, "rate", greeks.DefaultRiskFreeRate, "override risk-free rate")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strikes")
	_ = cmd.MarkFlagRequired("expiry")

	return cmd
}

func flavor(isCall bool) string {
	if isCall {
		return "call"
	}
	return "put"
}
