package detect

import "solana-atomic-arb/internal/domain"

// AnalyzeTransaction runs graph construction and cycle detection over one
// transaction of slot. Records come back in path order.
//
// A *MalformedTransactionError means only this transaction is unusable.
// Any other error is an invariant violation.
func AnalyzeTransaction(slot uint64, blockTime *int64, tx domain.Transaction) ([]domain.ArbitrageRecord, error) {
	paths, err := BuildSwapPaths(tx.Signature, tx.Events)
	if err != nil {
		return nil, err
	}

	var records []domain.ArbitrageRecord
	for _, path := range paths {
		rec, err := DetectCycle(path)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		rec.Slot = slot
		rec.BlockTime = blockTime
		rec.TxPosition = tx.Position
		rec.Decimals = tx.Decimals[rec.Token]
		records = append(records, *rec)
	}

	return records, nil
}
