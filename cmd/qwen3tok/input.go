package main

import (
	"bufio"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// inputFlags select where the texts come from, when they are not given as arguments.
type inputFlags struct {
	input   string
	parquet string
	column  string
	limit   int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "Read the texts from a file, one per line (\"-\" for stdin)")
	cmd.Flags().StringVar(&f.parquet, "parquet", "", "Read the texts from a column of a Parquet file")
	cmd.Flags().StringVar(&f.column, "column", "text", "Column of the Parquet file with the texts")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of texts to read from --input or --parquet, 0 for all")
}

// texts returns the texts to process: the arguments if any, else the ones from --parquet or --input,
// else the lines of stdin.
func (f *inputFlags) texts(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		if f.input != "" || f.parquet != "" {
			return nil, errors.New("texts given as arguments can't be combined with --input or --parquet")
		}
		return args, nil
	}
	if f.parquet != "" {
		return readParquetColumn(f.parquet, f.column, f.limit)
	}
	if f.input == "" || f.input == "-" {
		return readLines(cmd.InOrStdin(), f.limit)
	}
	file, err := os.Open(f.input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", f.input)
	}
	defer func() { _ = file.Close() }()
	texts, err := readLines(file, f.limit)
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", f.input)
	}
	return texts, nil
}

// maxLineSize limits the size of a text read from a file.
const maxLineSize = 64 * 1024 * 1024

func readLines(r io.Reader, limit int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lines []string
	for scanner.Scan() {
		if limit > 0 && len(lines) >= limit {
			break
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read lines")
	}
	return lines, nil
}

// readParquetColumn reads the non-null values of a string (byte array) column of a Parquet file.
func readParquetColumn(path, column string, limit int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer func() { _ = file.Close() }()
	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", path)
	}
	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Parquet file %q", path)
	}
	leaf, found := pf.Schema().Lookup(column)
	if !found {
		return nil, errors.Errorf("column %q not found in %q", column, path)
	}

	var texts []string
	for _, rowGroup := range pf.RowGroups() {
		texts, err = appendColumnChunk(texts, rowGroup.ColumnChunks()[leaf.ColumnIndex], limit)
		if err != nil {
			return nil, errors.WithMessagef(err, "while reading column %q of %q", column, path)
		}
		if limit > 0 && len(texts) >= limit {
			break
		}
	}
	return texts, nil
}

func appendColumnChunk(texts []string, chunk parquet.ColumnChunk, limit int) ([]string, error) {
	pages := chunk.Pages()
	defer func() { _ = pages.Close() }()
	values := make([]parquet.Value, 256)
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			return texts, nil
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		reader := page.Values()
		for {
			n, err := reader.ReadValues(values)
			for _, value := range values[:n] {
				if value.IsNull() {
					continue
				}
				if value.Kind() != parquet.ByteArray {
					return nil, errors.Errorf("column has values of kind %s, expected a string column", value.Kind())
				}
				texts = append(texts, string(value.ByteArray()))
				if limit > 0 && len(texts) >= limit {
					return texts, nil
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.WithStack(err)
			}
		}
	}
}
