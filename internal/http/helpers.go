package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"aicfo/internal/advice"
	"aicfo/internal/core"
	"aicfo/internal/extract"
	"aicfo/internal/services"
	"aicfo/internal/statement"
)

var (
	errNoFile   = errors.New("please choose a file to upload")
	errTooLarge = errors.New("file is too large")
)

// chartPalette colours the category bars in order.
var chartPalette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// readUpload reads one multipart file field, enforcing the upload limit.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) (services.Upload, error) {
	// Room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Upload{}, errTooLarge
		}
		return services.Upload{}, errNoFile
	}

	f, hdr, err := r.FormFile(field)
	if err != nil {
		return services.Upload{}, errNoFile
	}
	defer f.Close()

	if hdr.Size > limit {
		return services.Upload{}, errTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return services.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return services.Upload{}, errTooLarge
	}
	if len(data) == 0 {
		return services.Upload{}, errNoFile
	}
	return services.Upload{Filename: sanitizeInput(hdr.Filename), Data: data}, nil
}

// errorStatus maps a pipeline error to the response status.
func errorStatus(err error) int {
	var (
		parseErr *extract.ParseError
		valErr   *extract.ValidationError
	)
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile),
		errors.Is(err, services.ErrEmptyUpload),
		errors.Is(err, statement.ErrEmpty),
		errors.Is(err, extract.ErrEmptyStatement):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrUnsupportedImage),
		errors.As(err, &parseErr),
		errors.As(err, &valErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrModel):
		return http.StatusBadGateway
	case errors.Is(err, advice.ErrNoData):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeInput trims s and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

type chartBar struct {
	Name   string
	Amount decimal.Decimal
	Width  int
	Color  string
}

// chartBars scales each category to a percentage of the largest one. Small
// non-zero amounts get at least 2% so they stay visible.
func chartBars(ov core.Overview) []chartBar {
	top := ov.Max()
	bars := make([]chartBar, 0, len(ov.ByCategory))
	for i, c := range ov.ByCategory {
		width := 0
		if top.IsPositive() && c.Amount.IsPositive() {
			width = int(c.Amount.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
			width = min(max(width, 2), 100)
		}
		bars = append(bars, chartBar{
			Name:   c.Name,
			Amount: c.Amount,
			Width:  width,
			Color:  chartPalette[i%len(chartPalette)],
		})
	}
	return bars
}
