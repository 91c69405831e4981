package pdftext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Extraction is the plain-text view of a local PDF, used when the external
// workflow cannot fetch the file itself.
type Extraction struct {
	Text     string `json:"text"`
	NumPages int    `json:"num_pages"`
}

// Extract reads the PDF at path and returns its text. The read runs in a
// goroutine so a corrupt file cannot hold the caller past the context
// deadline.
func Extract(ctx context.Context, path string) (*Extraction, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	type result struct {
		ex  *Extraction
		err error
	}
	ch := make(chan result, 1)

	go func() {
		ex, err := extract(path)
		ch <- result{ex, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("pdf extraction timed out: %w", ctx.Err())
	case r := <-ch:
		return r.ex, r.err
	}
}

func extract(path string) (*Extraction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return &Extraction{
		Text:     strings.TrimSpace(b.String()),
		NumPages: numPages,
	}, nil
}
