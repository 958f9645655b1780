package http

import (
	"net/http"

	"aicfo/internal/log"
	"aicfo/internal/services"
)

type receiptResult struct {
	Recorded *services.Recorded
	Error    string
}

type receiptView struct {
	MaxUploadMB int64
	Result      *receiptResult
}

func (s *Server) receiptView(res *receiptResult) receiptView {
	return receiptView{MaxUploadMB: s.opts.MaxUploadBytes >> 20, Result: res}
}

func (s *Server) handleReceiptPage(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, pageReceipt, "", s.receiptView(nil), nil)
}

// handleReceiptUpload extracts one receipt image and appends it to the ledger.
func (s *Server) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	up, err := readUpload(w, r, "receipt", s.opts.MaxUploadBytes)
	if err != nil {
		s.receiptError(w, r, err)
		return
	}

	rec, err := s.pipeline.RecordReceipt(ctx, up)
	if err != nil {
		s.structured.LogError(ctx, "Receipt not recorded", err, log.OpReceipt,
			log.NewFields().WithFile(up.Filename))
		s.receiptError(w, r, err)
		return
	}

	s.structured.LogExpenseRecorded(ctx, log.OpReceipt, rec.Expense.Store, rec.Expense.Category, rec.Expense.Amount.String(), rec.RowRef)
	res := &receiptResult{Recorded: &rec}
	s.respond(w, r, http.StatusOK, pageReceipt, "receipt_result", s.receiptView(res), res)
}

func (s *Server) receiptError(w http.ResponseWriter, r *http.Request, err error) {
	res := &receiptResult{Error: err.Error()}
	s.respond(w, r, errorStatus(err), pageReceipt, "receipt_result", s.receiptView(res), res)
}
