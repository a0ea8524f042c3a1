package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"
)

// Source reads the order table from a delimited text file.
type Source struct {
	path  string
	comma rune
}

var _ ports.OrderSource = (*Source)(nil)

// New returns a Source for path. A zero comma means ','.
func New(path string, comma rune) *Source {
	if comma == 0 {
		comma = ','
	}
	return &Source{path: path, comma: comma}
}

// LoadOrders reads the whole file.
func (s *Source) LoadOrders(ctx context.Context) (core.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return core.Table{}, fmt.Errorf("%w: open %s: %v", ports.ErrSourceUnavailable, s.path, err)
	}
	defer f.Close()

	t, err := Read(ctx, f, s.comma)
	if err != nil {
		return core.Table{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	return t, nil
}

// Read parses delimited records from r. The first record is the header.
func Read(ctx context.Context, r io.Reader, comma rune) (core.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.Table{}, fmt.Errorf("%w: empty file", ports.ErrSourceUnavailable)
		}
		return core.Table{}, fmt.Errorf("read header: %w", err)
	}

	t := core.Table{Header: header}
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return core.Table{}, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
