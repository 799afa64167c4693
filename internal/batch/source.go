package batch

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openfacts/insights-tracker/internal/products"
)

// Document is one OCR provider file to extract from: the raw envelope bytes
// plus the canonical source path of the image it describes (may be empty).
type Document struct {
	Source string
	Raw    []byte
}

type jsonlLine struct {
	Source  string          `json:"source"`
	Content json.RawMessage `json:"content"`
}

// IsBarcode reports whether an input string is an EAN-13 barcode rather
// than a path.
func IsBarcode(input string) bool {
	return len(input) == 13 && isDigits(input)
}

// BarcodeFromPath rebuilds a barcode from the digit-named directories of a
// source path, innermost last ("/323/227/860/0004/3.jpg" -> "3232278600004").
// Returns "" when the path carries no digit directories.
func BarcodeFromPath(path string) string {
	barcode := ""
	dir := filepath.Dir(path)
	for {
		name := filepath.Base(dir)
		if !isDigits(name) {
			break
		}
		barcode = name + barcode
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return barcode
}

// Iterator yields OCR documents from one input, which can be a barcode (all
// product images are fetched from the product API), a .json file, a
// directory of .json files, or a .jsonl / .jsonl.gz dump. A failing item is
// logged and skipped; iteration never aborts on a single document.
type Iterator struct {
	client        *products.Client
	logger        *slog.Logger
	maxRetries    int
	retryInterval time.Duration
}

func NewIterator(client *products.Client, maxRetries int, retryInterval time.Duration, logger *slog.Logger) *Iterator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Iterator{
		client:        client,
		logger:        logger,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
	}
}

func (it *Iterator) Documents(ctx context.Context, input string) iter.Seq[Document] {
	return func(yield func(Document) bool) {
		if IsBarcode(input) {
			it.barcodeDocuments(ctx, input, yield)
			return
		}

		info, err := os.Stat(input)
		if err != nil {
			it.logger.Error("unrecognized input", "input", input, "error", err)
			return
		}
		if info.IsDir() {
			it.directoryDocuments(ctx, input, yield)
			return
		}
		if strings.HasSuffix(input, ".jsonl") || strings.HasSuffix(input, ".jsonl.gz") {
			it.jsonlDocuments(ctx, input, yield)
			return
		}
		it.fileDocument(input, yield)
	}
}

func (it *Iterator) barcodeDocuments(ctx context.Context, barcode string, yield func(Document) bool) {
	names, err := it.fetchImageNames(ctx, barcode)
	if err != nil {
		it.logger.Error("failed to fetch product images", "barcode", barcode, "error", err)
		return
	}
	for _, name := range names {
		raw, err := it.fetchImageOCR(ctx, barcode, name)
		if err != nil {
			it.logger.Warn("failed to fetch OCR, skipping image", "barcode", barcode, "image", name, "error", err)
			continue
		}
		if raw == nil {
			continue
		}
		source, err := products.ImageSource(barcode, name)
		if err != nil {
			source = ""
		}
		if !yield(Document{Source: source, Raw: raw}) {
			return
		}
	}
}

func (it *Iterator) directoryDocuments(ctx context.Context, root string, yield func(Document) bool) {
	stop := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			it.logger.Warn("walk error, skipping", "path", path, "error", walkErr)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			it.logger.Warn("failed to read file, skipping", "path", path, "error", err)
			return nil
		}
		source := sourceForFile(path)
		if !yield(Document{Source: source, Raw: raw}) {
			stop = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !stop {
		it.logger.Error("directory walk failed", "root", root, "error", err)
	}
}

func (it *Iterator) jsonlDocuments(ctx context.Context, path string, yield func(Document) bool) {
	f, err := os.Open(path)
	if err != nil {
		it.logger.Error("failed to open dump", "path", path, "error", err)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	var reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			it.logger.Error("failed to open gzip dump", "path", path, "error", err)
			return
		}
		defer func() {
			_ = gz.Close()
		}()
		reader = bufio.NewReader(gz)
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var line jsonlLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			it.logger.Warn("malformed dump line, skipping", "path", path, "error", err)
			continue
		}
		if len(line.Content) == 0 {
			continue
		}
		source := strings.ReplaceAll(line.Source, "//", "/")
		if !yield(Document{Source: source, Raw: line.Content}) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		it.logger.Error("failed to read dump", "path", path, "error", err)
	}
}

func (it *Iterator) fileDocument(path string, yield func(Document) bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		it.logger.Error("failed to read file", "path", path, "error", err)
		return
	}
	yield(Document{Source: sourceForFile(path), Raw: raw})
}

func (it *Iterator) fetchImageNames(ctx context.Context, barcode string) ([]string, error) {
	var names []string
	err := it.retry(ctx, func() error {
		var err error
		names, err = it.client.ImageNames(ctx, barcode)
		return err
	})
	return names, err
}

func (it *Iterator) fetchImageOCR(ctx context.Context, barcode, name string) ([]byte, error) {
	var raw []byte
	err := it.retry(ctx, func() error {
		var err error
		raw, err = it.client.ImageOCR(ctx, barcode, name)
		return err
	})
	return raw, err
}

// retry runs fn up to maxRetries times. External calls are transient by
// nature; a retryable failure on one item never aborts the whole batch.
func (it *Iterator) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= it.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == it.maxRetries {
			break
		}
		it.logger.Warn("external call failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(it.retryInterval):
		}
	}
	return err
}

// sourceForFile derives the canonical image source for an on-disk OCR file,
// falling back to the file path when no barcode can be recovered.
func sourceForFile(path string) string {
	barcode := BarcodeFromPath(path)
	if barcode == "" {
		return path
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	source, err := products.ImageSource(barcode, stem)
	if err != nil {
		return path
	}
	return source
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
