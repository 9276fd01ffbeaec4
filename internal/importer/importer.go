package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter loads a producer's product sheet and inserts or updates each
// product keyed by (producer, name).
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	producerID  string
	logger      zerolog.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, producerID string, logger *zerolog.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "importer").Logger()
	}
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		producerID:  producerID,
		logger:      l,
	}
}

var requiredHeaders = []string{"name", "price", "stock"}

// Run upserts every data row and returns how many products were written.
// Blank rows are skipped. The first invalid row stops the import.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	if i.producerID == "" {
		return 0, errors.New("producer id required")
	}
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing column %q", h)
		}
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		p, err := i.parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if p == nil {
			continue
		}
		saved, err := i.productRepo.Upsert(ctx, *p)
		if err != nil {
			return imported, fmt.Errorf("line %d: upsert product %q: %w", line, p.Name, err)
		}
		i.logger.Debug().Str("product_id", saved.ID).Str("name", saved.Name).Msg("imported")
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (*domain.Product, error) {
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price")
	stockStr := pick(record, index, "stock")
	if name == "" && priceStr == "" && stockStr == "" {
		return nil, nil
	}
	if name == "" {
		return nil, errors.New("name required")
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for %q", priceStr, name)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive for %q", name)
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("invalid stock %q for %q", stockStr, name)
	}

	return &domain.Product{
		ProducerID:  i.producerID,
		Name:        name,
		Price:       price.Round(2),
		Community:   pick(record, index, "community"),
		ImageURL:    pick(record, index, "image_url"),
		Stock:       stock,
		Description: pick(record, index, "description"),
	}, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
