package engine

import (
	"github.com/TalariManohar018/papertrade/internal/ledger"
)

// Report summarizes the outcome of a replay run.
type Report struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	NetPnL         float64 `json:"net_pnl"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	Commission     float64 `json:"commission"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	ReturnPct      float64 `json:"return_pct"`
}

// BuildReport computes performance statistics from closed trades.
func BuildReport(initialBalance float64, wallet ledger.WalletState, trades []ledger.Trade) Report {
	r := Report{
		TotalTrades:    len(trades),
		InitialBalance: initialBalance,
		FinalBalance:   wallet.Balance,
	}
	if initialBalance > 0 {
		r.ReturnPct = (wallet.Balance - initialBalance) / initialBalance * 100
	}
	if len(trades) == 0 {
		return r
	}

	pnls := make([]float64, 0, len(trades))
	for _, t := range trades {
		pnls = append(pnls, t.PnL)
		r.NetPnL += t.PnL
		r.Commission += t.Commission
		if t.PnL > 0 {
			r.WinningTrades++
			r.GrossProfit += t.PnL
		} else {
			r.LosingTrades++
			r.GrossLoss += -t.PnL
		}
	}

	r.WinRate = float64(r.WinningTrades) / float64(len(trades)) * 100
	// Left at zero when there are no losing trades; +Inf does not survive
	// JSON encoding.
	if r.GrossLoss > 0 {
		r.ProfitFactor = r.GrossProfit / r.GrossLoss
	}
	r.MaxDrawdown = maxDrawdown(initialBalance, pnls)
	return r
}

// maxDrawdown finds the largest peak-to-trough equity decline over the
// trade sequence, as a fraction of the peak.
func maxDrawdown(initial float64, pnls []float64) float64 {
	equity := initial
	peak := initial
	var maxDD float64

	for _, pnl := range pnls {
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
