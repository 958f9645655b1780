// Package extract turns receipt images and statement text into expense
// records by asking a language model for JSON and validating the answer.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"aicfo/internal/core"
	"aicfo/internal/llm"
	"aicfo/internal/log"
)

// Image is a receipt payload with its detected MIME type.
type Image struct {
	MIMEType string
	Data     []byte
}

// DetectImage checks that data is a JPEG or PNG image.
func DetectImage(data []byte) (Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	switch format {
	case "jpeg", "png":
		return Image{MIMEType: "image/" + format, Data: data}, nil
	default:
		return Image{}, fmt.Errorf("%w: got %s", ErrUnsupportedImage, format)
	}
}

// BatchItem is one entry of a bulk answer: either a record or the reason
// the item was rejected.
type BatchItem struct {
	Expense core.Expense
	Err     error
}

// Batch holds the items of a bulk answer in model order.
type Batch []BatchItem

// Valid returns the records that passed validation.
func (b Batch) Valid() []core.Expense {
	out := make([]core.Expense, 0, len(b))
	for _, it := range b {
		if it.Err == nil {
			out = append(out, it.Expense)
		}
	}
	return out
}

// Extractor submits prompts to a model and validates its answers.
type Extractor struct {
	model llm.Model
}

func New(model llm.Model) *Extractor {
	return &Extractor{model: model}
}

// Extract reads a single receipt image.
func (x *Extractor) Extract(ctx context.Context, data []byte) (core.Expense, error) {
	img, err := DetectImage(data)
	if err != nil {
		return core.Expense{}, err
	}

	answer, err := x.model.Generate(ctx, ReceiptPrompt, llm.Attachment{MIMEType: img.MIMEType, Data: img.Data})
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrModel, err)
	}
	slog.DebugContext(ctx, "Receipt answer received", log.FieldComponent, log.ComponentExtract, "bytes", len(answer))

	return decodeObject(answer)
}

// ExtractBulk reads a whole statement. The returned batch has one entry per
// item of the model's list, including the rejected ones.
func (x *Extractor) ExtractBulk(ctx context.Context, statement string) (Batch, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, ErrEmptyStatement
	}

	answer, err := x.model.Generate(ctx, BulkPrompt(statement))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}

	batch, err := decodeArray(answer)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Bulk answer decoded",
		log.FieldComponent, log.ComponentExtract,
		"items", len(batch),
		"valid", len(batch.Valid()))
	return batch, nil
}
