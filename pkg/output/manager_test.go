package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerPath(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, "")
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, m.Format())
	assert.Equal(t, filepath.Join(dir, "tiktok_videos.csv"), m.Path("tiktok_videos"))
	assert.Equal(t, filepath.Join(dir, "custom.tsv"), m.Path("custom.tsv"))
}

func TestManagerRejectsUnknownFormat(t *testing.T) {
	_, err := NewManager(t.TempDir(), "parquet")
	assert.Error(t, err)
}

func TestManagerCreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	m, err := NewManager(dir, FormatJSONL)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, m.GetOutputDir())
}

func TestCSVWriter(t *testing.T) {
	m, err := NewManager(t.TempDir(), FormatCSV)
	require.NoError(t, err)

	fields := []string{"video_id", "text", "like_count", "is_top_level", "missing"}
	w, err := m.Open("comments", fields)
	require.NoError(t, err)

	require.NoError(t, w.Write(Row{"video_id": "7301", "text": "hello, \"world\"", "like_count": 3, "is_top_level": true}))

	// flushed per row: readable before Close
	data, err := os.ReadFile(m.Path("comments"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	require.NoError(t, w.Write(Row{"video_id": "7302", "like_count": int64(9)}))
	require.NoError(t, w.Close())

	f, err := os.Open(m.Path("comments"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, fields, records[0])
	assert.Equal(t, []string{"7301", "hello, \"world\"", "3", "true", ""}, records[1])
	assert.Equal(t, []string{"7302", "", "9", "", ""}, records[2])
	assert.Equal(t, []string{m.Path("comments")}, m.Files())
}

func TestJSONLWriterKeepsFieldOrder(t *testing.T) {
	m, err := NewManager(t.TempDir(), FormatJSONL)
	require.NoError(t, err)

	w, err := m.Open("videos", []string{"video_id", "view_count", "hashtag_names"})
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{"video_id": "1", "view_count": 10, "hashtag_names": "a,b"}))
	require.NoError(t, w.Write(Row{"video_id": "2"}))
	require.NoError(t, w.Close())

	f, err := os.Open(m.Path("videos"))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.Equal(t, `{"video_id":"1","view_count":10,"hashtag_names":"a,b"}`, lines[0])
	assert.Equal(t, `{"video_id":"2","view_count":null,"hashtag_names":null}`, lines[1])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, float64(10), decoded["view_count"])
}

func TestOpenRequiresFields(t *testing.T) {
	m, err := NewManager(t.TempDir(), FormatCSV)
	require.NoError(t, err)
	_, err = m.Open("empty", nil)
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "false", FormatValue(false))
	assert.Equal(t, "2025-03-01T12:00:00Z", FormatValue(ts))
	assert.Equal(t, "", FormatValue(time.Time{}))
	assert.Equal(t, "[a b]", FormatValue([]string{"a", "b"}))
}
