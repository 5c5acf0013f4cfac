package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRecordID computes a deterministic arbitrage record id using SHA256.
// Formula: SHA256(signature|trader|token|instruction_index|edge_ordinal)
// where edge_ordinal is the position of the cycle's first edge among the
// trader's edges, so separate cycles in one instruction get separate ids.
// Returns hex-encoded hash (64 characters).
func ComputeRecordID(
	signature string,
	trader string,
	token string,
	instructionIndex int,
	edgeOrdinal int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		signature,
		trader,
		token,
		instructionIndex,
		edgeOrdinal,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
