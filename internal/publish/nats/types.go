package nats

import (
	"time"

	"solana-atomic-arb/internal/domain"
)

// ArbitrageEvent is the JSON payload published for each detected record,
// on the subject "{prefix}.{trader}".
type ArbitrageEvent struct {
	RecordID       string   `json:"record_id"`
	Slot           uint64   `json:"slot"`
	Signature      string   `json:"signature"`
	Trader         string   `json:"trader"`
	Token          string   `json:"token"`
	Profit         string   `json:"profit"` // base units
	Decimals       uint8    `json:"decimals"`
	PathLength     int      `json:"path_length"`
	InvolvedTokens []string `json:"involved_tokens"`

	BlockTime   *time.Time `json:"block_time,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
}

// FromRecord converts a record into its published form.
func FromRecord(rec domain.ArbitrageRecord, now time.Time) *ArbitrageEvent {
	ev := &ArbitrageEvent{
		RecordID:       rec.RecordID,
		Slot:           rec.Slot,
		Signature:      rec.TransactionID,
		Trader:         rec.Trader,
		Token:          rec.Token,
		Profit:         rec.Profit.String(),
		Decimals:       rec.Decimals,
		PathLength:     rec.PathLength,
		InvolvedTokens: rec.InvolvedTokens,
		PublishedAt:    now.UTC(),
	}
	if rec.BlockTime != nil {
		bt := time.Unix(*rec.BlockTime, 0).UTC()
		ev.BlockTime = &bt
	}
	return ev
}
