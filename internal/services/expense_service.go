// Package services orchestrates the receipt, statement and dashboard actions
// against the extractor, the ledger and the advice generator.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"aicfo/internal/amqp"
	"aicfo/internal/core"
	"aicfo/internal/extract"
	"aicfo/internal/log"
	"aicfo/internal/sheets"
)

type (
	Extractor interface {
		Extract(ctx context.Context, image []byte) (core.Expense, error)
		ExtractBulk(ctx context.Context, statement string) (extract.Batch, error)
	}

	Advisor interface {
		Advise(ctx context.Context, records []core.Expense) (string, error)
	}

	// EventPublisher is notified after every successful append.
	EventPublisher interface {
		PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error
	}
)

// Upload is a file received from the user.
type Upload struct {
	Filename string
	Data     []byte
}

// Recorded is an expense appended to the ledger.
type Recorded struct {
	Expense core.Expense
	RowRef  string
}

// ItemFailure is a statement item that was not appended. Position is the
// 1-based item number in the model's answer.
type ItemFailure struct {
	Position int
	Store    string
	Err      error
}

// ImportResult reports a bulk import. Identified counts the items the model
// returned; every one ends up in Appended or Failed.
type ImportResult struct {
	BatchID    string
	Identified int
	Appended   []Recorded
	Failed     []ItemFailure
}

var ErrEmptyUpload = errors.New("no file uploaded")

// ExpenseService runs one synchronous action per call.
type ExpenseService struct {
	extractor Extractor
	ledger    sheets.Ledger
	advisor   Advisor
	events    EventPublisher
}

type Option func(*ExpenseService)

// WithEvents publishes an event after each appended row.
func WithEvents(p EventPublisher) Option {
	return func(s *ExpenseService) { s.events = p }
}

func NewExpenseService(x Extractor, ledger sheets.Ledger, advisor Advisor, opts ...Option) *ExpenseService {
	s := &ExpenseService{extractor: x, ledger: ledger, advisor: advisor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordReceipt extracts one receipt and appends it to the ledger.
func (s *ExpenseService) RecordReceipt(ctx context.Context, up Upload) (Recorded, error) {
	if len(up.Data) == 0 {
		return Recorded{}, ErrEmptyUpload
	}

	e, err := s.extractor.Extract(ctx, up.Data)
	if err != nil {
		return Recorded{}, fmt.Errorf("extract receipt: %w", err)
	}

	ref, err := s.ledger.Append(ctx, e)
	if err != nil {
		return Recorded{}, fmt.Errorf("save to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Receipt recorded",
		log.FieldOperation, log.OpReceipt,
		log.FieldFile, up.Filename,
		log.FieldStore, e.Store,
		log.FieldCategory, e.Category,
		log.FieldAmount, e.Amount.String(),
		log.FieldRowRef, ref)
	s.publish(ctx, amqp.NewExpenseRecordedMessage(amqp.SourceReceipt, "", ref, e))

	return Recorded{Expense: e, RowRef: ref}, nil
}

// ImportStatement extracts every expense in a statement and appends them one
// by one. A failed extraction aborts the import; a rejected or unsaved item is
// reported and the import continues with the next one.
func (s *ExpenseService) ImportStatement(ctx context.Context, statement string) (ImportResult, error) {
	batch, err := s.extractor.ExtractBulk(ctx, statement)
	if err != nil {
		return ImportResult{}, fmt.Errorf("extract statement: %w", err)
	}

	res := ImportResult{BatchID: uuid.NewString(), Identified: len(batch)}
	for i, item := range batch {
		if item.Err != nil {
			res.Failed = append(res.Failed, ItemFailure{Position: i + 1, Err: item.Err})
			continue
		}

		ref, err := s.ledger.Append(ctx, item.Expense)
		if err != nil {
			slog.WarnContext(ctx, "Statement item not saved", log.FieldBatchID, res.BatchID, "position", i+1, log.FieldError, err)
			res.Failed = append(res.Failed, ItemFailure{Position: i + 1, Store: item.Expense.Store, Err: fmt.Errorf("save to ledger: %w", err)})
			continue
		}
		res.Appended = append(res.Appended, Recorded{Expense: item.Expense, RowRef: ref})
		s.publish(ctx, amqp.NewExpenseRecordedMessage(amqp.SourceStatement, res.BatchID, ref, item.Expense))
	}

	slog.InfoContext(ctx, "Statement imported",
		log.FieldOperation, log.OpImport,
		log.FieldBatchID, res.BatchID,
		"identified", res.Identified,
		"appended", len(res.Appended),
		"failed", len(res.Failed))
	return res, nil
}

func (s *ExpenseService) publish(ctx context.Context, msg *amqp.ExpenseRecordedMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseRecorded(ctx, msg); err != nil {
		// The row is already in the ledger.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldRowRef, msg.RowRef,
			log.FieldError, err)
	}
}
