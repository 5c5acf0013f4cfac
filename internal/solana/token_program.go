package solana

import (
	"strconv"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// SPL Token program ids.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// decodeCompiledInstruction resolves a compiled instruction against the full
// account key list and decodes SPL Token transfers with the solana-go token
// decoder. Token-2022 keeps the Transfer and TransferChecked layouts of the
// original program, so both programs share the decoder; Token-2022 extension
// instructions fail to decode and carry no transfer.
func decodeCompiledInstruction(keys []solanago.PublicKey, programIndex uint16, accounts []uint16, data []byte) Instruction {
	if int(programIndex) >= len(keys) {
		return Instruction{}
	}
	ix := Instruction{ProgramID: keys[programIndex].String()}
	if ix.ProgramID != TokenProgramID && ix.ProgramID != Token2022ProgramID {
		return ix
	}
	if len(data) == 0 {
		return ix
	}

	metas := make([]*solanago.AccountMeta, 0, len(accounts))
	for _, idx := range accounts {
		if int(idx) >= len(keys) {
			return ix
		}
		metas = append(metas, solanago.Meta(keys[idx]))
	}

	decoded, err := token.DecodeInstruction(metas, data)
	if err != nil {
		return ix
	}

	switch inst := decoded.Impl.(type) {
	case *token.Transfer:
		src, dst, owner := inst.Accounts.Get(0), inst.Accounts.Get(1), inst.Accounts.Get(2)
		if inst.Amount == nil || src == nil || dst == nil || owner == nil {
			return ix
		}
		ix.Transfer = &TokenTransfer{
			Source:      src.PublicKey.String(),
			Destination: dst.PublicKey.String(),
			Authority:   owner.PublicKey.String(),
			Amount:      strconv.FormatUint(*inst.Amount, 10),
		}

	case *token.TransferChecked:
		src, mint, dst, owner := inst.Accounts.Get(0), inst.Accounts.Get(1), inst.Accounts.Get(2), inst.Accounts.Get(3)
		if inst.Amount == nil || inst.Decimals == nil || src == nil || mint == nil || dst == nil || owner == nil {
			return ix
		}
		decimals := *inst.Decimals
		ix.Transfer = &TokenTransfer{
			Source:      src.PublicKey.String(),
			Destination: dst.PublicKey.String(),
			Authority:   owner.PublicKey.String(),
			Mint:        mint.PublicKey.String(),
			Amount:      strconv.FormatUint(*inst.Amount, 10),
			Decimals:    &decimals,
		}
	}

	return ix
}
