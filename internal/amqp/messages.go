package amqp

import (
	"encoding/json"
	"time"

	"aicfo/internal/core"
)

// Message sources.
const (
	SourceReceipt   = "receipt"
	SourceStatement = "statement"
)

// ExpenseRecordedMessage announces one row appended to the ledger.
type ExpenseRecordedMessage struct {
	BatchID   string    `json:"batch_id,omitempty"`
	Source    string    `json:"source"`
	RowRef    string    `json:"row_ref"`
	Date      string    `json:"date"`
	Store     string    `json:"store"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the message for an appended expense.
// The amount is kept as a decimal string.
func NewExpenseRecordedMessage(source, batchID, rowRef string, e core.Expense) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		BatchID:   batchID,
		Source:    source,
		RowRef:    rowRef,
		Date:      e.Date.String(),
		Store:     e.Store,
		Category:  e.Category,
		Amount:    e.Amount.String(),
		Summary:   e.Summary,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
