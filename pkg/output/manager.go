package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Supported formats
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// Manager resolves dataset names to files in the output directory
type Manager struct {
	outputDir string
	format    string
	opened    []string
	mu        sync.Mutex
}

// NewManager creates a new output manager
func NewManager(outputDir, format string) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	format = strings.ToLower(format)
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSONL {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		format:    format,
	}, nil
}

// Path returns the file a dataset name maps to. A name that already
// carries an extension is used as is.
func (m *Manager) Path(name string) string {
	if filepath.Ext(name) == "" {
		name += "." + m.format
	}
	return filepath.Join(m.outputDir, name)
}

// Open creates the dataset file and returns a writer with the given header
func (m *Manager) Open(name string, fields []string) (RowWriter, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("dataset %s: no fields", name)
	}
	path := m.Path(name)

	var (
		w   RowWriter
		err error
	)
	switch m.format {
	case FormatJSONL:
		w, err = NewJSONLWriter(path, fields)
	default:
		w, err = NewCSVWriter(path, fields)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.opened = append(m.opened, path)
	m.mu.Unlock()

	return w, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Format returns the configured output format
func (m *Manager) Format() string {
	return m.format
}

// Files returns every file opened so far, in order
func (m *Manager) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}
