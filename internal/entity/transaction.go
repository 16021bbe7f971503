package entity

type TransactionKind string

const (
	TransactionBuy      TransactionKind = "buy"
	TransactionSell     TransactionKind = "sell"
	TransactionTransfer TransactionKind = "transfer"
)

// Transaction is a confirmed on-chain operation made on behalf of a user.
type Transaction struct {
	Kind TransactionKind
	Hash string

	// Amount and Asset echo what the user asked for, e.g. "0.5" and "ETH".
	Amount string
	Asset  string

	// To is set for transfers.
	To string
}
