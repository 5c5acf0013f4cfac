package solana

// Block is a produced slot with its transactions in block order.
type Block struct {
	Slot         uint64
	BlockTime    *int64
	Transactions []BlockTransaction
}

// BlockTransaction is one transaction of a block, reduced to what transfer
// extraction needs.
type BlockTransaction struct {
	Signature         string
	AccountKeys       []string // static keys followed by loaded writable and readonly keys
	Err               interface{}
	Instructions      []Instruction
	InnerInstructions []InnerInstructions
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// Failed reports whether the transaction errored on chain.
func (t *BlockTransaction) Failed() bool {
	return t.Err != nil
}

// Instruction is a program invocation. Transfer is set only for decoded SPL
// Token transfers.
type Instruction struct {
	ProgramID string
	Transfer  *TokenTransfer
}

// InnerInstructions groups the instructions invoked by top-level instruction Index.
type InnerInstructions struct {
	Index        int
	Instructions []Instruction
}

// TokenTransfer is a decoded SPL Token Transfer or TransferChecked.
// Mint and Decimals are only known for TransferChecked.
type TokenTransfer struct {
	Source      string // token account
	Destination string // token account
	Authority   string
	Mint        string
	Amount      string // base units
	Decimals    *uint8
}

// TokenBalance is a pre or post token balance entry of a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string
	Decimals     uint8
}
