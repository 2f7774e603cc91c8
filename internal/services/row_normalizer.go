package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/trade-engine/tick-viewer/internal/domain"
)

// RowError describes why a data row was left out of the normalized output.
type RowError struct {
	Line   int    `json:"line"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Column, e.Reason)
}

// NormalizeResult holds the surviving records and the rows that were dropped.
type NormalizeResult struct {
	Records []domain.NormalizedRecord
	Dropped []RowError
}

func (r *NormalizeResult) DroppedCount() int {
	return len(r.Dropped)
}

// RowNormalizer turns raw CSV tick exports into normalized records.
// Rows with unrepairable timestamps or non-numeric values are dropped, not reported as errors.
type RowNormalizer struct {
	priceColumn string
}

func NewRowNormalizer(priceColumn string) *RowNormalizer {
	if priceColumn == "" {
		priceColumn = domain.ColumnPrice
	}
	return &RowNormalizer{priceColumn: priceColumn}
}

type columnIndex struct {
	time, price, np1, np2, prf int
}

func (ci columnIndex) max() int {
	m := ci.time
	for _, v := range []int{ci.price, ci.np1, ci.np2, ci.prf} {
		if v > m {
			m = v
		}
	}
	return m
}

// NormalizeBytes is Normalize over an in-memory document.
func (rn *RowNormalizer) NormalizeBytes(data []byte) (*NormalizeResult, error) {
	return rn.Normalize(bytes.NewReader(data))
}

// Normalize parses a CSV document with a header row. It fails with
// domain.ErrMalformedInput only when the header lacks a required column.
func (rn *RowNormalizer) Normalize(r io.Reader) (*NormalizeResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty document", domain.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrMalformedInput, err)
	}

	cols, err := rn.resolveColumns(header)
	if err != nil {
		return nil, err
	}
	width := cols.max()

	result := &NormalizeResult{Records: []domain.NormalizedRecord{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.Dropped = append(result.Dropped, RowError{Line: parseErr.Line, Reason: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %v", domain.ErrMalformedInput, err)
		}
		line, _ := reader.FieldPos(0)

		if len(row) <= width {
			result.Dropped = append(result.Dropped, RowError{Line: line, Reason: "too few fields"})
			continue
		}

		record, rowErr := parseRow(row, cols)
		if rowErr != nil {
			rowErr.Line = line
			result.Dropped = append(result.Dropped, *rowErr)
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// resolveColumns maps the required columns onto header positions. The price
// column falls back to "price" so normalized output can be normalized again.
func (rn *RowNormalizer) resolveColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	lookup := func(names ...string) (int, bool) {
		for _, n := range names {
			if i, ok := positions[n]; ok {
				return i, true
			}
		}
		return -1, false
	}

	var (
		cols    columnIndex
		missing []string
		ok      bool
	)
	if cols.time, ok = lookup(domain.ColumnTime); !ok {
		missing = append(missing, domain.ColumnTime)
	}
	if cols.price, ok = lookup(rn.priceColumn, domain.ColumnPrice); !ok {
		missing = append(missing, rn.priceColumn)
	}
	if cols.np1, ok = lookup(domain.ColumnNP1); !ok {
		missing = append(missing, domain.ColumnNP1)
	}
	if cols.np2, ok = lookup(domain.ColumnNP2); !ok {
		missing = append(missing, domain.ColumnNP2)
	}
	if cols.prf, ok = lookup(domain.ColumnPRF); !ok {
		missing = append(missing, domain.ColumnPRF)
	}

	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: missing columns %s", domain.ErrMalformedInput, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(row []string, cols columnIndex) (domain.NormalizedRecord, *RowError) {
	ts, err := RepairTime(row[cols.time])
	if err != nil {
		return domain.NormalizedRecord{}, &RowError{Column: domain.ColumnTime, Reason: err.Error()}
	}

	record := domain.NormalizedRecord{Time: ts}
	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{domain.ColumnPrice, cols.price, &record.Price},
		{domain.ColumnNP1, cols.np1, &record.NP1},
		{domain.ColumnNP2, cols.np2, &record.NP2},
		{domain.ColumnPRF, cols.prf, &record.PRF},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[f.idx]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.NormalizedRecord{}, &RowError{Column: f.name, Reason: fmt.Sprintf("not a number: %q", row[f.idx])}
		}
		*f.dst = v
	}

	return record, nil
}

// RepairTime converts a compact time value such as "91530" or "5930" into
// "HH:MM:SS", restoring dropped leading zeros. Colon-separated and float-rendered
// ("91530.0") inputs are accepted; colon form needs H:MM:SS or HH:MM:SS.
// The result must be a valid 24-hour time.
func RepairTime(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 || len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 || len(parts[2]) != 2 {
			return "", fmt.Errorf("time %q is not H:MM:SS", raw)
		}
		s = strings.Join(parts, "")
	}

	if s == "" {
		return "", errors.New("empty time")
	}
	if len(s) > 6 {
		return "", fmt.Errorf("time %q longer than 6 digits", raw)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("time %q is not numeric", raw)
		}
	}

	s = strings.Repeat("0", 6-len(s)) + s
	hh, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	ss, _ := strconv.Atoi(s[4:6])
	if hh > 23 || mm > 59 || ss > 59 {
		return "", fmt.Errorf("time %q out of range", raw)
	}

	return s[0:2] + ":" + s[2:4] + ":" + s[4:6], nil
}
