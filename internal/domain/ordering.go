package domain

import (
	"errors"
	"sort"
)

// ErrInvalidOrdering is returned when records are not in canonical order.
var ErrInvalidOrdering = errors.New("records are not in canonical order")

// SortRecords orders records by (slot ASC, tx_position ASC,
// instruction_index ASC, trader ASC, record_id ASC), the order in which a
// scan emits them.
func SortRecords(records []ArbitrageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return CompareRecords(records[i], records[j]) < 0
	})
}

// ValidateRecordOrdering checks that records are strictly ascending in
// canonical order. Duplicates are rejected.
func ValidateRecordOrdering(records []ArbitrageRecord) error {
	for i := 1; i < len(records); i++ {
		if CompareRecords(records[i-1], records[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// CompareRecords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func CompareRecords(a, b ArbitrageRecord) int {
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	if a.TxPosition != b.TxPosition {
		if a.TxPosition < b.TxPosition {
			return -1
		}
		return 1
	}
	if a.InstructionIndex != b.InstructionIndex {
		if a.InstructionIndex < b.InstructionIndex {
			return -1
		}
		return 1
	}
	if a.Trader != b.Trader {
		if a.Trader < b.Trader {
			return -1
		}
		return 1
	}
	if a.RecordID != b.RecordID {
		if a.RecordID < b.RecordID {
			return -1
		}
		return 1
	}
	return 0
}
