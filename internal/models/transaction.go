package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionPending   TransactionStatus = "pending"
)

// Transaction is a bounty payout shown in the ledger. It is display-only.
type Transaction struct {
	ID            string            `json:"id"`
	TxHash        string            `json:"txHash"`
	Amount        decimal.Decimal   `json:"amount"`
	USDValue      decimal.Decimal   `json:"usdValue"`
	Status        TransactionStatus `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	BountyTitle   string            `json:"bountyTitle"`
	Confirmations int               `json:"confirmations"`
}

// LedgerSummary totals the confirmed payouts of a ledger.
type LedgerSummary struct {
	TotalSentBTC decimal.Decimal `json:"totalSentBTC"`
	TotalSentUSD decimal.Decimal `json:"totalSentUSD"`
	Count        int             `json:"count"`
	Pending      int             `json:"pending"`
}
