// Package ingest loads subject signal tables from delimited text files
// and Excel workbooks.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"dynaconn/domain/series"
	"dynaconn/internal"
	"dynaconn/internal/errors"
)

// Reader loads raw signal tables. Tables are headerless numeric grids
// with one row per time sample and one column per brain area.
type Reader struct {
	log *internal.Logger
}

// NewReader creates a reader logging through the given logger.
func NewReader(log *internal.Logger) *Reader {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &Reader{log: log.Tagged("ingest")}
}

// ReadSeries implements ports.SeriesReader. Excel workbooks are read
// from their first sheet; any other extension is treated as delimited
// text with the delimiter autodetected from the first data line.
func (r *Reader) ReadSeries(ctx context.Context, path string) (*series.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Ingest(path, err)
	}

	var (
		cells [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		cells, err = r.readWorkbook(path)
	default:
		cells, err = r.readDelimited(path)
	}
	if err != nil {
		return nil, err
	}

	ts, err := parseNumericGrid(cells)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	r.log.Debug("read %s: %d samples x %d areas", path, ts.Rows, ts.Cols)
	return ts, nil
}

func (r *Reader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Ingest(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Ingest(path, fmt.Errorf("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Ingest(path, err)
	}
	return rows, nil
}

func (r *Reader) readDelimited(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Ingest(path, err)
	}
	defer file.Close()

	var cells [][]string
	delimiter := rune(0)
	detected := false

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !detected {
			delimiter = detectDelimiter(line)
			detected = true
		}
		cells = append(cells, splitLine(line, delimiter))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Ingest(path, err)
	}
	return cells, nil
}

// detectDelimiter picks the separator from the first data line: tab,
// then comma, then semicolon, falling back to whitespace runs.
func detectDelimiter(line string) rune {
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ','):
		return ','
	case strings.ContainsRune(line, ';'):
		return ';'
	default:
		return 0
	}
}

func splitLine(line string, delimiter rune) []string {
	if delimiter == 0 {
		return strings.Fields(line)
	}
	fields := strings.Split(line, string(delimiter))
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// parseNumericGrid converts string cells into a TimeSeries, rejecting
// empty input, ragged rows, and non-numeric cells.
func parseNumericGrid(cells [][]string) (*series.TimeSeries, error) {
	if len(cells) == 0 {
		return nil, errors.InputShape("input contains no data rows")
	}

	cols := len(cells[0])
	if cols == 0 {
		return nil, errors.InputShape("first row contains no values")
	}

	data := make([]float64, 0, len(cells)*cols)
	for i, row := range cells {
		if len(row) != cols {
			return nil, errors.InputShape(fmt.Sprintf(
				"ragged row %d: %d values, first row has %d", i, len(row), cols))
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Ingest(fmt.Sprintf("row %d, column %d", i, j),
					fmt.Errorf("value %q is not numeric", cell))
			}
			data = append(data, v)
		}
	}

	return series.NewTimeSeries(len(cells), cols, data)
}
