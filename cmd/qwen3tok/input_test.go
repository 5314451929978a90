package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textRow struct {
	ID   int64  `parquet:"id"`
	Text string `parquet:"text"`
}

func writeTestParquet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "texts.parquet")
	require.NoError(t, parquet.WriteFile(path, []textRow{
		{ID: 1, Text: "hello"},
		{ID: 2, Text: "hello world"},
		{ID: 3, Text: "<think>"},
	}))
	return path
}

func TestReadParquetColumn(t *testing.T) {
	path := writeTestParquet(t)
	texts, err := readParquetColumn(path, "text", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hello world", "<think>"}, texts)

	texts, err = readParquetColumn(path, "text", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hello world"}, texts)

	_, err = readParquetColumn(path, "missing", 0)
	require.Error(t, err)
	_, err = readParquetColumn(path, "id", 0)
	require.Error(t, err)
	_, err = readParquetColumn(filepath.Join(t.TempDir(), "missing.parquet"), "text", 0)
	require.Error(t, err)
}

func TestCountParquet(t *testing.T) {
	dir := writeTestTokenizer(t)
	out, err := run(t, "", "--dir", dir, "count", "--format=json", "--parquet", writeTestParquet(t))
	require.NoError(t, err)
	var counts countOutput
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, []int{1, 6, 1}, counts.Counts)

	_, err = run(t, "", "--dir", dir, "count", "--parquet", writeTestParquet(t), "hello")
	require.Error(t, err)
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("a\nb\n\nc"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "", "c"}, lines)

	lines, err = readLines(strings.NewReader("a\nb\nc\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestInputFile(t *testing.T) {
	dir := writeTestTokenizer(t)
	input := filepath.Join(t.TempDir(), "texts.txt")
	require.NoError(t, os.WriteFile(input, []byte("hello\nhello world\n"), 0o644))
	out, err := run(t, "", "--dir", dir, "count", "--input", input)
	require.NoError(t, err)
	assert.Equal(t, "1\n6\ntotal: 7\n", out)

	_, err = run(t, "", "--dir", dir, "count", "--input", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
