// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/pdiddy/bibresolve/pkg/types"
)

// HistoryRow is the flattened form of one stored resolution.
type HistoryRow struct {
	ID         string  `parquet:"id"`
	DocKey     string  `parquet:"doc_key"`
	ResolvedAt string  `parquet:"resolved_at"`
	Status     string  `parquet:"status"`
	Confidence float64 `parquet:"confidence"`
	Escalated  bool    `parquet:"escalated"`
	DOIHit     bool    `parquet:"doi_hit"`
	Sources    string  `parquet:"sources"`
	Title      string  `parquet:"title"`
	Authors    string  `parquet:"authors"`
	Year       int32   `parquet:"year"`
	Venue      string  `parquet:"venue"`
	DOI        string  `parquet:"doi"`
	EntryType  string  `parquet:"entry_type"`
}

// Row flattens a resolution for columnar export.
func Row(docKey string, resolvedAt time.Time, res types.ResolutionResult) HistoryRow {
	sources := make([]string, len(res.Sources))
	for i, s := range res.Sources {
		sources[i] = string(s)
	}
	m := res.Metadata
	return HistoryRow{
		ID:         res.ID,
		DocKey:     docKey,
		ResolvedAt: resolvedAt.UTC().Format(time.RFC3339),
		Status:     string(res.Status),
		Confidence: res.Confidence,
		Escalated:  res.Escalated,
		DOIHit:     res.DOIHit,
		Sources:    strings.Join(sources, ","),
		Title:      m.Title,
		Authors:    m.Authors,
		Year:       int32(m.Year),
		Venue:      m.Venue,
		DOI:        m.DOI,
		EntryType:  string(m.BibtexType),
	}
}

// WriteParquet writes rows to a Parquet file at path.
func WriteParquet(path string, rows []HistoryRow) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing parquet %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads rows written by WriteParquet.
func ReadParquet(path string) ([]HistoryRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %w", err)
	}

	reader := parquet.NewGenericReader[HistoryRow](pf)
	defer reader.Close()

	rows := make([]HistoryRow, pf.NumRows())
	total := 0
	for total < len(rows) {
		n, err := reader.Read(rows[total:])
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parquet rows: %w", err)
		}
	}
	return rows[:total], nil
}
