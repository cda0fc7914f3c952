package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"code-bounty/internal/models"
)

type samplePayout struct {
	id            string
	txHash        string
	amount        string
	usd           string
	status        models.TransactionStatus
	age           time.Duration
	bountyTitle   string
	confirmations int
}

// samplePayouts is the illustrative ledger. Nothing here is read from storage.
var samplePayouts = []samplePayout{
	{"tx_001", "1a2b3c4d5e6f7g8h9i0j1k2l3m4n5o6p7q8r9s0t1u2v3w4x5y6z", "0.025", "1250", models.TransactionConfirmed, 2 * 24 * time.Hour, "React Dashboard Implementation", 6},
	{"tx_002", "9z8y7x6w5v4u3t2s1r0q9p8o7n6m5l4k3j2i1h0g9f8e7d6c5b4a", "0.05", "2500", models.TransactionConfirmed, 5 * 24 * time.Hour, "API Integration & Testing", 12},
	{"tx_003", "5f4e3d2c1b0a9z8y7x6w5v4u3t2s1r0q9p8o7n6m5l4k3j2i1h0g", "0.0125", "625", models.TransactionPending, 30 * time.Minute, "Bug Fix - Authentication Module", 0},
	{"tx_004", "3g2f1e0d9c8b7a6z5y4x3w2v1u0t9s8r7q6p5o4n3m2l1k0j9i8h", "0.075", "3750", models.TransactionConfirmed, 7 * 24 * time.Hour, "Mobile App UI/UX Redesign", 25},
	{"tx_005", "7h6g5f4e3d2c1b0a9z8y7x6w5v4u3t2s1r0q9p8o7n6m5l4k3j2i", "0.1", "5000", models.TransactionConfirmed, 10 * 24 * time.Hour, "Blockchain Integration Project", 45},
	{"tx_006", "8i7h6g5f4e3d2c1b0a9z8y7x6w5v4u3t2s1r0q9p8o7n6m5l4k3j", "0.03", "1500", models.TransactionConfirmed, 14 * 24 * time.Hour, "Database Optimization", 78},
	{"tx_007", "2j1i0h9g8f7e6d5c4b3a2z1y0x9w8v7u6t5s4r3q2p1o0n9m8l7k", "0.02", "1000", models.TransactionConfirmed, 21 * 24 * time.Hour, "Security Audit Implementation", 156},
	{"tx_008", "4k3j2i1h0g9f8e7d6c5b4a3z2y1x0w9v8u7t6s5r4q3p2o1n0m9l", "0.0085", "425", models.TransactionPending, 2 * time.Hour, "Performance Optimization", 0},
}

// LedgerService serves the display-only payout ledger.
type LedgerService struct{}

func NewLedgerService() *LedgerService {
	return &LedgerService{}
}

// RecentTransactions returns the sample payouts dated relative to now, newest first.
func (s *LedgerService) RecentTransactions(now time.Time) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(samplePayouts))
	for _, p := range samplePayouts {
		out = append(out, &models.Transaction{
			ID:            p.id,
			TxHash:        p.txHash,
			Amount:        decimal.RequireFromString(p.amount),
			USDValue:      decimal.RequireFromString(p.usd),
			Status:        p.status,
			Timestamp:     now.Add(-p.age),
			BountyTitle:   p.bountyTitle,
			Confirmations: p.confirmations,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Summarize totals the confirmed payouts and counts the pending ones.
func (s *LedgerService) Summarize(txs []*models.Transaction) models.LedgerSummary {
	summary := models.LedgerSummary{
		TotalSentBTC: decimal.Zero,
		TotalSentUSD: decimal.Zero,
		Count:        len(txs),
	}
	for _, tx := range txs {
		switch tx.Status {
		case models.TransactionConfirmed:
			summary.TotalSentBTC = summary.TotalSentBTC.Add(tx.Amount)
			summary.TotalSentUSD = summary.TotalSentUSD.Add(tx.USDValue)
		case models.TransactionPending:
			summary.Pending++
		}
	}
	return summary
}
