package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicfo/internal/advice"
	"aicfo/internal/amqp"
	"aicfo/internal/core"
	"aicfo/internal/extract"
	"aicfo/internal/llm"
	"aicfo/internal/sheets"
	"aicfo/internal/sheets/memory"
)

type fakeModel struct {
	answers []string
	err     error
	calls   int
}

func (f *fakeModel) Generate(context.Context, string, ...llm.Attachment) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answers[(f.calls-1)%len(f.answers)], nil
}

type recordingEvents struct {
	msgs []*amqp.ExpenseRecordedMessage
	err  error
}

func (r *recordingEvents) PublishExpenseRecorded(_ context.Context, msg *amqp.ExpenseRecordedMessage) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

// failingLedger rejects appends of the named store and can fail reads.
type failingLedger struct {
	*memory.Store
	rejectStore string
	readErr     error
}

func (f *failingLedger) Append(ctx context.Context, e core.Expense) (string, error) {
	if e.Store == f.rejectStore {
		return "", errors.New("quota exceeded")
	}
	return f.Store.Append(ctx, e)
}

func (f *failingLedger) ReadAll(ctx context.Context) ([]core.Expense, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Store.ReadAll(ctx)
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil))
	return buf.Bytes()
}

func newService(model llm.Model, ledger sheets.Ledger, opts ...Option) *ExpenseService {
	return NewExpenseService(extract.New(model), ledger, advice.New(model, "INR"), opts...)
}

func TestImportStatementEndToEnd(t *testing.T) {
	model := &fakeModel{answers: []string{"```json\n" +
		`[{"date":"2024-01-01","store":"Coffee Shop","category":"Food","total":"150","summary":"Coffee"}]` +
		"\n```"}}
	store := memory.New()
	events := &recordingEvents{}
	svc := newService(model, store, WithEvents(events))

	res, err := svc.ImportStatement(context.Background(), "Date,Description,Amount\n2024-01-01,COFFEE SHOP,-150\n")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Identified)
	assert.Len(t, res.Appended, 1)
	assert.Empty(t, res.Failed)
	_, err = uuid.Parse(res.BatchID)
	assert.NoError(t, err)

	assert.Equal(t, [][]any{{"2024-01-01", "Coffee Shop", "Food", 150.0, "Coffee"}}, store.Rows())

	require.Len(t, events.msgs, 1)
	assert.Equal(t, res.BatchID, events.msgs[0].BatchID)
	assert.Equal(t, "mem:1", events.msgs[0].RowRef)
}

func TestImportStatementLogsBatch(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	model := &fakeModel{answers: []string{
		`[{"date":"2024-01-01","store":"Coffee Shop","category":"Food","total":"150","summary":"Coffee"}]`,
	}}
	res, err := newService(model, memory.New()).ImportStatement(context.Background(), "Date,Amount\n2024-01-01,150\n")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "batch_id="+res.BatchID)
	assert.Contains(t, buf.String(), "operation=import")
}

func TestImportStatementContinuesOnError(t *testing.T) {
	model := &fakeModel{answers: []string{`[
		{"date":"2024-01-01","store":"A","category":"Food","total":10,"summary":"a"},
		{"date":"2024-01-02","store":"B","category":"Food","summary":"missing total"},
		{"date":"2024-01-03","store":"Rejected","category":"Food","total":3,"summary":"c"},
		{"date":"2024-01-04","store":"D","category":"Tech","total":"4","summary":"d"}
	]`}}
	ledger := &failingLedger{Store: memory.New(), rejectStore: "Rejected"}
	events := &recordingEvents{err: errors.New("broker down")}
	svc := newService(model, ledger, WithEvents(events))

	res, err := svc.ImportStatement(context.Background(), "raw statement")
	require.NoError(t, err, "event failures are not surfaced")

	assert.Equal(t, 4, res.Identified)
	require.Len(t, res.Appended, 2)
	assert.Equal(t, "A", res.Appended[0].Expense.Store)
	assert.Equal(t, "D", res.Appended[1].Expense.Store)

	require.Len(t, res.Failed, 2)
	assert.Equal(t, 2, res.Failed[0].Position)
	var verr *extract.ValidationError
	assert.ErrorAs(t, res.Failed[0].Err, &verr)
	assert.Equal(t, 3, res.Failed[1].Position)
	assert.Equal(t, "Rejected", res.Failed[1].Store)
	assert.ErrorContains(t, res.Failed[1].Err, "quota exceeded")

	rows, _ := ledger.ReadAll(context.Background())
	assert.Len(t, rows, 2)
	assert.Len(t, events.msgs, 2)
}

func TestImportStatementExtractionFailureAborts(t *testing.T) {
	store := memory.New()
	svc := newService(&fakeModel{answers: []string{"Sorry, I can't help with that."}}, store)

	_, err := svc.ImportStatement(context.Background(), "raw")
	var perr *extract.ParseError
	assert.ErrorAs(t, err, &perr)

	rows, _ := store.ReadAll(context.Background())
	assert.Empty(t, rows)
}

func TestRecordReceipt(t *testing.T) {
	model := &fakeModel{answers: []string{`{"date":"2024-02-10","store":"Pharmacy","category":"Health","total":"₹ 320.00","summary":"Vitamins"}`}}
	store := memory.New()
	svc := newService(model, store)

	rec, err := svc.RecordReceipt(context.Background(), Upload{Filename: "r.jpg", Data: jpegBytes(t)})
	require.NoError(t, err)
	assert.Equal(t, "mem:1", rec.RowRef)
	assert.Equal(t, "Pharmacy", rec.Expense.Store)
	assert.True(t, decimal.NewFromInt(320).Equal(rec.Expense.Amount))
}

func TestRecordReceiptErrors(t *testing.T) {
	svc := newService(&fakeModel{err: errors.New("invalid api key")}, memory.New())

	_, err := svc.RecordReceipt(context.Background(), Upload{})
	assert.ErrorIs(t, err, ErrEmptyUpload)

	_, err = svc.RecordReceipt(context.Background(), Upload{Data: jpegBytes(t)})
	assert.ErrorIs(t, err, extract.ErrModel)
	assert.ErrorContains(t, err, "invalid api key")
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{answers: []string{"tips"}}

	t.Run("empty ledger", func(t *testing.T) {
		res := newService(model, memory.New()).Dashboard(ctx)
		assert.Equal(t, DashboardEmpty, res.Status)
		assert.NoError(t, res.Err)
	})

	t.Run("unreachable ledger", func(t *testing.T) {
		ledger := &failingLedger{Store: memory.New(), readErr: errors.New("403 forbidden")}
		res := newService(model, ledger).Dashboard(ctx)
		assert.Equal(t, DashboardUnavailable, res.Status)
		assert.EqualError(t, res.Err, "403 forbidden")
	})

	t.Run("ready", func(t *testing.T) {
		store := memory.New(
			core.Expense{Date: core.NewDate(2024, 1, 1), Category: "Food", Amount: decimal.NewFromInt(150)},
			core.Expense{Date: core.NewDate(2024, 1, 2), Category: "Travel", Amount: decimal.NewFromInt(40)},
			core.Expense{Date: core.NewDate(2024, 1, 3), Category: "Food", Amount: decimal.NewFromInt(10)},
		)
		res := newService(model, store).Dashboard(ctx)
		require.Equal(t, DashboardReady, res.Status)
		assert.Equal(t, 3, res.Overview.Count)
		assert.Equal(t, "200", res.Overview.Total.String())
		require.Len(t, res.Overview.ByCategory, 2)
		assert.Equal(t, "Food", res.Overview.ByCategory[0].Name)
		assert.Equal(t, "160", res.Overview.ByCategory[0].Amount.String())
	})
}

func TestAdvise(t *testing.T) {
	ctx := context.Background()

	_, err := newService(&fakeModel{answers: []string{"x"}}, memory.New()).Advise(ctx)
	assert.ErrorIs(t, err, advice.ErrNoData)

	store := memory.New(core.Expense{Date: core.NewDate(2024, 1, 1), Category: "Food", Amount: decimal.NewFromInt(5)})
	out, err := newService(&fakeModel{answers: []string{"Stop buying coffee."}}, store).Advise(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Stop buying coffee.", out)

	ledger := &failingLedger{Store: memory.New(), readErr: errors.New("offline")}
	_, err = newService(&fakeModel{answers: []string{"x"}}, ledger).Advise(ctx)
	assert.ErrorContains(t, err, "read ledger: offline")
}

func TestDashboardStatusString(t *testing.T) {
	assert.Equal(t, "ready", DashboardReady.String())
	assert.Equal(t, "unavailable", DashboardUnavailable.String())
}
