package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

var ErrEmptyTable = errors.New("export table has no rows")

// Table is a header plus string rows, all of the header's width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Archive is a finished ZIP bundle.
type Archive struct {
	Name  string
	Base  string
	Data  []byte
	Parts []string
	Rows  int
}

// Chunks splits the rows into groups of at most size rows. A size of zero
// or less keeps everything in one group.
func (t Table) Chunks(size int) [][][]string {
	if len(t.Rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(t.Rows) {
		return [][][]string{t.Rows}
	}

	out := make([][][]string, 0, (len(t.Rows)+size-1)/size)
	for start := 0; start < len(t.Rows); start += size {
		end := start + size
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		out = append(out, t.Rows[start:end])
	}
	return out
}

// BuildArchive writes every chunk as a CSV and an XLSX part and packs them
// into <base>.zip. Parts carry a _partN suffix only when there is more than
// one chunk.
func BuildArchive(t Table, base string, chunkSize int) (*Archive, error) {
	chunks := t.Chunks(chunkSize)
	if len(chunks) == 0 {
		return nil, ErrEmptyTable
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()

	archive := &Archive{Name: base + ".zip", Base: base, Rows: len(t.Rows)}

	for i, rows := range chunks {
		suffix := ""
		if len(chunks) > 1 {
			suffix = fmt.Sprintf("_part%d", i+1)
		}

		csvData, err := encodeCSV(t.Header, rows)
		if err != nil {
			return nil, err
		}
		xlsxData, err := encodeXLSX(t.Header, rows)
		if err != nil {
			return nil, err
		}

		for _, part := range []struct {
			name string
			data []byte
		}{
			{base + suffix + ".csv", csvData},
			{base + suffix + ".xlsx", xlsxData},
		} {
			w, err := zw.CreateHeader(&zip.FileHeader{
				Name:     part.name,
				Method:   zip.Deflate,
				Modified: now,
			})
			if err != nil {
				return nil, fmt.Errorf("zip entry %q: %w", part.name, err)
			}
			if _, err := w.Write(part.data); err != nil {
				return nil, fmt.Errorf("zip write %q: %w", part.name, err)
			}
			archive.Parts = append(archive.Parts, part.name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	archive.Data = buf.Bytes()
	return archive, nil
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx stream: %w", err)
	}

	writeRow := func(idx int, values []string) error {
		cell, _ := excelize.CoordinatesToCellName(1, idx)
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return sw.SetRow(cell, row)
	}

	if err := writeRow(1, header); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	for i, r := range rows {
		if err := writeRow(i+2, r); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("xlsx flush: %w", err)
	}

	out, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return out.Bytes(), nil
}
