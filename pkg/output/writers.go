package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Row maps field names to values. Writers emit fields in their header
// order; fields missing from the row are written empty.
type Row map[string]any

// RowWriter persists rows incrementally
type RowWriter interface {
	Write(row Row) error
	Close() error
}

// CSVWriter writes rows to CSV, flushing after every row
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	fields []string
	count  int
	mu     sync.Mutex
}

// NewCSVWriter creates filename and writes the header row
func NewCSVWriter(filename string, fields []string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(fields); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
		fields: fields,
	}, nil
}

// Write appends one row
func (cw *CSVWriter) Write(row Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := make([]string, len(cw.fields))
	for i, field := range cw.fields {
		record[i] = FormatValue(row[field])
	}
	if err := cw.writer.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv record: %w", err)
	}
	cw.count++
	return nil
}

// Count returns the number of rows written
func (cw *CSVWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.count
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// JSONLWriter writes newline-delimited JSON objects with keys in header order
type JSONLWriter struct {
	file   *os.File
	writer *bufio.Writer
	fields []string
	count  int
	mu     sync.Mutex
}

// NewJSONLWriter creates filename
func NewJSONLWriter(filename string, fields []string) (*JSONLWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONLWriter{
		file:   f,
		writer: bufio.NewWriter(f),
		fields: fields,
	}, nil
}

// Write appends one row as a JSON line
func (jw *JSONLWriter) Write(row Row) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range jw.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field)
		if err != nil {
			return fmt.Errorf("encode json key: %w", err)
		}
		value, err := json.Marshal(row[field])
		if err != nil {
			return fmt.Errorf("encode json field %s: %w", field, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString("}\n")

	if _, err := jw.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write json record: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	jw.count++
	return nil
}

// Count returns the number of rows written
func (jw *JSONLWriter) Count() int {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.count
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// FormatValue renders a value for a CSV cell
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
