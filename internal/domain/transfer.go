package domain

import "github.com/shopspring/decimal"

// TransferEvent is one token balance change observed inside a transaction.
// Amount is in integer base units of Mint: negative when tokens leave the
// account, positive when they arrive. The account whose balance changed is
// From for outgoing events and To for incoming events.
type TransferEvent struct {
	From             string
	To               string
	Mint             string
	Amount           decimal.Decimal
	TransactionID    string
	InstructionIndex int // top-level instruction the transfer belongs to
	InnerIndex       int // position inside the instruction group
}

// Account returns the account whose balance this event changes.
func (e TransferEvent) Account() string {
	if e.Amount.IsNegative() {
		return e.From
	}
	return e.To
}

// IsOutgoing reports whether tokens leave Account().
func (e TransferEvent) IsOutgoing() bool {
	return e.Amount.IsNegative()
}

// Transaction is a successful transaction with its transfer events in
// instruction order.
type Transaction struct {
	Signature string
	Signer    string           // fee payer, first account key
	Position  int              // index inside the block
	Decimals  map[string]uint8 // mint -> decimals, from token balances
	Events    []TransferEvent
}

// SlotData is the analyzable content of one produced slot.
type SlotData struct {
	Slot         uint64
	BlockTime    *int64 // Unix seconds
	Transactions []Transaction
}
