package holders

import (
	"encoding/csv"
	"fmt"
	"io"

	"token-holders/internal/infra/fs"
)

var csvHeader = []string{"Address", "Balance"}

// CSVWriter streams holder rows to an output file. The target is only
// replaced when Close succeeds.
type CSVWriter struct {
	file *fs.AtomicFile
	w    *csv.Writer
	rows int
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := fs.CreateAtomic(path)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{file: f, w: csv.NewWriter(f)}
	if err := cw.w.Write(csvHeader); err != nil {
		f.Abort()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) Write(h Holder) error {
	if err := c.w.Write(holderRow(h)); err != nil {
		return fmt.Errorf("failed to write row for %s: %w", h.Address, err)
	}
	c.rows++
	return nil
}

func (c *CSVWriter) Rows() int { return c.rows }

// Close flushes the rows and moves the file into place.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Abort()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return c.file.Commit()
}

// Abort drops everything written so far.
func (c *CSVWriter) Abort() {
	c.file.Abort()
}

// ExportCSV overwrites path with the header and one row per holder.
func ExportCSV(path string, holders []Holder) (int, error) {
	cw, err := NewCSVWriter(path)
	if err != nil {
		return 0, err
	}
	for _, h := range holders {
		if err := cw.Write(h); err != nil {
			cw.Abort()
			return 0, err
		}
	}
	if err := cw.Close(); err != nil {
		return 0, err
	}
	return cw.Rows(), nil
}

// WriteCSV writes the same format to w.
func WriteCSV(w io.Writer, holders []Holder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, h := range holders {
		if err := cw.Write(holderRow(h)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func holderRow(h Holder) []string {
	return []string{h.Address, h.Balance.String()}
}
