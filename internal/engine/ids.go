package engine

import "github.com/google/uuid"

// OrderID uniquely identifies an order for the lifetime of the book.
type OrderID = uuid.UUID

// TransactionID uniquely identifies a single maker/taker fill.
type TransactionID = uuid.UUID

// NewOrderID generates a fresh random order identifier.
func NewOrderID() OrderID {
	return uuid.New()
}

// TxnIDGenerator mints transaction IDs namespaced to a single order book,
// mirroring the namespaced UUID generator the teacher's upstream engine
// keys transaction IDs off of.
type TxnIDGenerator struct {
	namespace uuid.UUID
}

// NewTxnIDGenerator creates a generator rooted at a fresh random namespace.
func NewTxnIDGenerator() *TxnIDGenerator {
	return &TxnIDGenerator{namespace: uuid.New()}
}

// Next returns a new transaction ID derived from the generator's namespace.
func (g *TxnIDGenerator) Next() TransactionID {
	seed := uuid.New()
	return uuid.NewSHA1(g.namespace, seed[:])
}
