package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"docqa/types"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for uploads that are not PDF files.
var ErrUnsupportedType = errors.New("only PDF documents are supported")

// ExtractionError reports an upload that could not be turned into text.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %q: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PageReader gives access to the text of each page, in order.
type PageReader interface {
	NumPage() int
	Text(page int) (string, error)
	Close() error
}

type Extractor struct {
	logger  *zap.Logger
	inspect func(data []byte) (int, error)
	open    func(data []byte) (PageReader, error)
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger:  logger,
		inspect: inspectPDF,
		open:    openFitz,
	}
}

func openFitz(data []byte) (PageReader, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// IsSupported reports whether name looks like a PDF file.
func IsSupported(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// IsPDFContentType reports whether a multipart part type declares a PDF.
func IsPDFContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/pdf"
}

// hasPDFHeader looks for the %PDF- marker, readers allow it within the first kilobyte.
func hasPDFHeader(data []byte) bool {
	return bytes.Contains(data[:min(len(data), 1024)], pdfMagic)
}

var pdfMagic = []byte("%PDF-")

// Extract returns the document text: the pages in order, each followed by a newline.
// Files are accepted by extension or by content.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (types.Document, error) {
	start := time.Now()
	if !IsSupported(name) && !hasPDFHeader(data) {
		return types.Document{}, &ExtractionError{Name: name, Err: ErrUnsupportedType}
	}
	if len(data) == 0 {
		return types.Document{}, &ExtractionError{Name: name, Err: errors.New("empty file")}
	}

	reader, err := e.open(data)
	if err != nil {
		return types.Document{}, &ExtractionError{Name: name, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer reader.Close()

	if reader.NumPage() == 0 {
		return types.Document{}, &ExtractionError{Name: name, Err: errors.New("document has no pages")}
	}

	// pdfcpu is stricter than the reader, fitz repairs broken xref tables
	pages, err := e.inspect(data)
	if err != nil {
		e.logger.Warn("pdf structure check failed, using reader page count",
			zap.String("name", name),
			zap.Error(err))
		pages = reader.NumPage()
	}

	text, err := readPages(ctx, reader)
	if err != nil {
		return types.Document{}, &ExtractionError{Name: name, Err: err}
	}

	doc := types.Document{
		ID:       uuid.New(),
		Name:     filepath.Base(name),
		Pages:    pages,
		FullText: text,
		LoadedAt: time.Now(),
	}
	e.logger.Info("document extracted",
		zap.String("name", doc.Name),
		zap.Int("pages", pages),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)))
	return doc, nil
}

func readPages(ctx context.Context, reader PageReader) (string, error) {
	var sb strings.Builder
	for i := 0; i < reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := reader.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
