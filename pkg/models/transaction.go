package models

import "github.com/shopspring/decimal"

// EntityType is the upstream label attached to a ledger party
// (e.g. "wallet", "exchange", "contract"). Tags are free-form.
type EntityType string

// Transaction represents one parsed ledger transfer. Addresses are
// lowercased at ingestion so every graph key matches regardless of casing.
type Transaction struct {
	Hash        string          `json:"hash"`
	Block       int64           `json:"block"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Value       float64         `json:"value"` // base unit, non-negative
	Fee         float64         `json:"fee"`
	Age         int64           `json:"age"` // seconds since the tx occurred; larger = older
	FromEntity  EntityType      `json:"fromEntity,omitempty"`
	ToEntity    EntityType      `json:"toEntity,omitempty"`
	FeeRatio    float64         `json:"feeRatio"` // Fee / Value, 0 when Value is 0
	RawValue    decimal.Decimal `json:"rawValue"` // smallest unit
	FromTxCount int             `json:"fromTxCount"`
	ToTxCount   int             `json:"toTxCount"`
}

