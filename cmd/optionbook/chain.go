package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/chain"
	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

func chainCmd() *cobra.Command {
	var (
		product string
		expiry  string
	)

	cmd := &cobra.Command{
		Use:   "chain ASSET",
		Short: "Print the option chain for an asset",
		Long: `Fetch the order book and print one option chain with model Greeks.

Examples:
  # Nearest BTC expiry, vanilla options
  optionbook chain BTC

  # ETH call spreads for one expiry
  optionbook chain ETH --product spread --expiry 30JAN26`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := orderbook.ParseAsset(args[0])
			if err != nil {
				return err
			}
			structure, err := greeks.ParseStructure(product)
			if err != nil {
				return err
			}

			snap, err := fetchSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			feeds := cfg.Feeds.Feeds()
			exp, err := snap.ResolveExpiry(feeds, asset, expiry)
			if err != nil {
				return err
			}

			view := snap.ChainView(feeds, greeks.NewPricer(cfg.Pricing), asset, structure, exp)
			logger.Debug("chain built", zap.Int("rows", len(view.Chain.Rows)))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s  spot %s\n", view.Asset, view.Product, view.ExpiryLabel, fmtNum(view.Chain.Spot, 2))

			table := newTable(out,
				"Call Bid", "Call Ask", "C Delta", "C Gamma", "C Vega", "C Theta",
				"Strike",
				"Put Bid", "Put Ask", "P Delta", "P Gamma", "P Vega", "P Theta",
			)
			for i, row := range view.Chain.Rows {
				strike := fmtNum(row.Strike, 0)
				if i == view.Chain.SpotRow {
					strike += " *"
				}
				cells := []string{quoteCell(row.CallBid), quoteCell(row.CallAsk)}
				cells = append(cells, greeksCells(row.CallGreeks)...)
				cells = append(cells, strike, quoteCell(row.PutBid), quoteCell(row.PutAsk))
				cells = append(cells, greeksCells(row.PutGreeks)...)
				table.Append(cells)
			}
			table.Render()

			s := view.Summary
			fmt.Fprintf(out, "rows %d  bids %d  asks %d  ATM %s  median strike %s  mean call ask %s  mean put ask %s\n",
				s.Rows, s.Bids, s.Asks,
				fmtNum(s.ATMStrike, 0), fmtNum(s.MedianStrike, 0),
				fmtNum(s.MeanCallAsk, 2), fmtNum(s.MeanPutAsk, 2),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&product, "product", "p", "Vanilla", "Vanilla, Spread, Butterfly or Condor")
	cmd.Flags().StringVarP(&expiry, "expiry", "e", "", "expiry as DDMMMYY or unix seconds (default nearest)")

	return cmd
}

func expiriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expiries ASSET",
		Short: "List expiries with open orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := orderbook.ParseAsset(args[0])
			if err != nil {
				return err
			}

			snap, err := fetchSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			feeds := cfg.Feeds.Feeds()
			table := newTable(cmd.OutOrStdout(), "Expiry", "Timestamp", "Vanilla", "Spread", "Butterfly", "Condor")
			for _, e := range snap.Expiries(feeds, asset) {
				cells := []string{e.Label, fmt.Sprint(e.Timestamp)}
				for _, product := range greeks.Structures() {
					cells = append(cells, fmt.Sprint(len(orderbook.Filter(snap.Orders, feeds, asset, product, e.Timestamp))))
				}
				table.Append(cells)
			}
			table.Render()
			return nil
		},
	}
}

func quoteCell(q *chain.Quote) string {
	if q == nil {
		return "-"
	}
	return fmtNum(q.PriceUSD, 2)
}
