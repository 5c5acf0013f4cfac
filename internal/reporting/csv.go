package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"solana-atomic-arb/internal/domain"
)

// CSVHeader lists the record columns in output order.
var CSVHeader = []string{
	"slot",
	"signature",
	"trader",
	"token",
	"profit",
	"path_length",
	"involved_tokens",
}

// involvedTokensSep joins the path's mints inside one column.
const involvedTokensSep = "|"

// CSVWriter streams arbitrage records as CSV rows. The header is written
// before the first row, or on Close for an empty run.
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
	rows   int
}

// NewCSVWriter creates a writer on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends records and flushes them.
func (c *CSVWriter) Write(_ context.Context, records []domain.ArbitrageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeHeader(); err != nil {
		return err
	}
	for i := range records {
		if err := c.w.Write(csvRow(&records[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		c.rows++
	}
	c.w.Flush()
	return c.w.Error()
}

// Rows returns the number of rows written so far, header excluded.
func (c *CSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close writes the header if nothing was written and flushes. It does not
// close the underlying writer.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeHeader(); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) writeHeader() error {
	if c.header {
		return nil
	}
	if err := c.w.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	c.header = true
	return nil
}

func csvRow(r *domain.ArbitrageRecord) []string {
	return []string{
		strconv.FormatUint(r.Slot, 10),
		r.TransactionID,
		r.Trader,
		r.Token,
		r.Profit.String(),
		strconv.Itoa(r.PathLength),
		strings.Join(r.InvolvedTokens, involvedTokensSep),
	}
}

// RenderCSV renders records as a complete CSV document.
func RenderCSV(records []domain.ArbitrageRecord) string {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	_ = w.Write(context.Background(), records)
	_ = w.Close()
	return buf.String()
}
