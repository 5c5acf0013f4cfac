package ingestion

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// addressKind classifies a base58 account address.
type addressKind int

const (
	addressInvalid addressKind = iota
	addressWallet              // ed25519 public key, can sign
	addressProgram             // off-curve, program derived
)

func classifyAddress(addr string) addressKind {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return addressInvalid
	}
	if !isOnCurve(raw) {
		return addressProgram
	}
	return addressWallet
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
