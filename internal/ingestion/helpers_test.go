package ingestion

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"solana-atomic-arb/internal/solana"
)

// walletKey returns a deterministic on-curve address.
func walletKey(t *testing.T, seed byte) string {
	t.Helper()
	wide := make([]byte, 64)
	wide[0] = seed
	wide[1] = 0x5a
	s, err := edwards25519.NewScalar().SetUniformBytes(wide)
	require.NoError(t, err)
	return base58.Encode(new(edwards25519.Point).ScalarBaseMult(s).Bytes())
}

// programKey returns a deterministic off-curve address.
func programKey(t *testing.T, seed byte) string {
	t.Helper()
	for i := uint32(0); i < 1024; i++ {
		buf := make([]byte, 5)
		buf[0] = seed
		binary.LittleEndian.PutUint32(buf[1:], i)
		h := sha256.Sum256(buf)
		if !isOnCurve(h[:]) {
			return base58.Encode(h[:])
		}
	}
	t.Fatal("no off-curve key found")
	return ""
}

func transfer(src, dst, authority, amount string) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgramID,
		Transfer:  &solana.TokenTransfer{Source: src, Destination: dst, Authority: authority, Amount: amount},
	}
}

func transferChecked(src, dst, authority, mint, amount string, decimals uint8) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.Token2022ProgramID,
		Transfer: &solana.TokenTransfer{
			Source: src, Destination: dst, Authority: authority,
			Mint: mint, Amount: amount, Decimals: &decimals,
		},
	}
}

// balances builds token balances for keys[i] -> (owner, mint) entries.
func balances(keys []string, owners map[string][2]string, decimals uint8) []solana.TokenBalance {
	var out []solana.TokenBalance
	for i, k := range keys {
		om, ok := owners[k]
		if !ok {
			continue
		}
		out = append(out, solana.TokenBalance{AccountIndex: i, Owner: om[0], Mint: om[1], Amount: "0", Decimals: decimals})
	}
	return out
}
