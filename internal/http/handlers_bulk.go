package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"aicfo/internal/log"
	"aicfo/internal/services"
	"aicfo/internal/statement"
)

type bulkPreview struct {
	Filename string
	Table    statement.Table
	Total    int
	Text     string
	Error    string
}

type bulkResult struct {
	Result *services.ImportResult
	Error  string
}

type bulkView struct {
	MaxUploadMB int64
	Preview     *bulkPreview
	Result      *bulkResult
}

func (s *Server) bulkView() bulkView {
	return bulkView{MaxUploadMB: s.opts.MaxUploadBytes >> 20}
}

func (s *Server) handleBulkPage(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, pageBulk, "", s.bulkView(), nil)
}

// handleBulkPreview parses an uploaded statement and shows its first rows.
// The full table travels back to the client as text for the process step.
func (s *Server) handleBulkPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := s.bulkView()

	up, err := readUpload(w, r, "statement", s.opts.MaxUploadBytes)
	if err != nil {
		view.Preview = &bulkPreview{Error: err.Error()}
		s.respond(w, r, errorStatus(err), pageBulk, "bulk_preview", view, view.Preview)
		return
	}

	table, err := statement.Parse(bytes.NewReader(up.Data))
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Statement not readable",
			log.FieldFile, up.Filename,
			log.FieldOperation, log.OpPreview,
			log.FieldError, err)
		view.Preview = &bulkPreview{Filename: up.Filename, Error: "Could not read the statement: " + err.Error()}
		s.respond(w, r, http.StatusUnprocessableEntity, pageBulk, "bulk_preview", view, view.Preview)
		return
	}

	view.Preview = &bulkPreview{
		Filename: up.Filename,
		Table:    table.Head(statement.PreviewRows),
		Total:    table.Len(),
		Text:     table.Text(),
	}
	s.respond(w, r, http.StatusOK, pageBulk, "bulk_preview", view, view.Preview)
}

// handleBulkProcess extracts every expense in the previewed statement and
// appends them one by one, reporting the items that failed.
func (s *Server) handleBulkProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := s.bulkView()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errTooLarge
		}
		view.Result = &bulkResult{Error: err.Error()}
		s.respond(w, r, errorStatus(err), pageBulk, "bulk_result", view, view.Result)
		return
	}
	text := strings.TrimSpace(r.FormValue("statement_text"))
	if text == "" {
		view.Result = &bulkResult{Error: "Upload and preview a statement first."}
		s.respond(w, r, http.StatusBadRequest, pageBulk, "bulk_result", view, view.Result)
		return
	}

	res, err := s.pipeline.ImportStatement(ctx, text)
	if err != nil {
		s.structured.LogError(ctx, "Statement import failed", err, log.OpImport, nil)
		view.Result = &bulkResult{Error: err.Error()}
		s.respond(w, r, errorStatus(err), pageBulk, "bulk_result", view, view.Result)
		return
	}

	for _, rec := range res.Appended {
		s.structured.LogExpenseRecorded(ctx, log.OpImport, rec.Expense.Store, rec.Expense.Category, rec.Expense.Amount.String(), rec.RowRef)
	}
	view.Result = &bulkResult{Result: &res}
	s.respond(w, r, http.StatusOK, pageBulk, "bulk_result", view, view.Result)
}
