package parquetio

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/table"
)

const (
	defaultRowsPerFile = 1000000
	flushEvery         = 100000

	// One marshalling goroutine: with more, dictionary pages are filled in scheduling
	// order and identical tables stop producing identical files.
	marshalParallel = 1
)

// InvalidFunc decides what happens to a value that cannot be cast to its column type.
// Returning nil writes a null; returning an error aborts the write.
type InvalidFunc func(column, value string, err error) error

// Options configure Write.
type Options struct {
	RowsPerFile int
	OnInvalid   InvalidFunc
	Logger      *log.Logger
}

// File describes one written part file.
type File struct {
	Path  string
	Rows  int
	Bytes int64
}

// Metadata returns the parquet-go CSV schema for a dataset. Physical types follow the
// warehouse column types so the files load into the generated DDL.
func Metadata(d schema.Dataset) []string {
	md := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		rep := "OPTIONAL"
		if c.NotNull {
			rep = "REQUIRED"
		}
		var typ string
		switch c.Type {
		case schema.Int:
			typ = "type=INT32"
		case schema.BigInt:
			typ = "type=INT64"
		case schema.Float:
			typ = "type=DOUBLE"
		case schema.Date:
			typ = "type=INT32, convertedtype=DATE"
		default:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"
		}
		md[i] = fmt.Sprintf("name=%s, %s, repetitiontype=%s", c.Name, typ, rep)
	}
	return md
}

// PartName returns the deterministic file name of part n.
func PartName(n int) string {
	return fmt.Sprintf("part-%05d.parquet", n)
}

// Write writes t as parquet part files under dir. t's header must equal the dataset's
// column list. At least one file is written, even for an empty table.
func Write(dir string, d schema.Dataset, t *table.Table, opts Options) ([]File, error) {
	if err := checkHeader(d, t); err != nil {
		return nil, err
	}
	if opts.RowsPerFile <= 0 {
		opts.RowsPerFile = defaultRowsPerFile
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	md := Metadata(d)
	var files []File
	for part, start := 0, 0; start < t.Len() || part == 0; part, start = part+1, start+opts.RowsPerFile {
		end := start + opts.RowsPerFile
		if end > t.Len() {
			end = t.Len()
		}
		path := filepath.Join(dir, PartName(part))
		f, err := writePart(path, md, d, t.Rows[start:end], opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", d.Name, filepath.Base(path), err)
		}
		files = append(files, f)
	}
	return files, nil
}

func checkHeader(d schema.Dataset, t *table.Table) error {
	want := d.ColumnNames()
	if len(want) != len(t.Columns) {
		return fmt.Errorf("%s: table has %d columns, dataset has %d", d.Name, len(t.Columns), len(want))
	}
	for i, name := range want {
		if t.Columns[i] != name {
			return fmt.Errorf("%s: column %d is %q, want %q", d.Name, i, t.Columns[i], name)
		}
	}
	return nil
}

func writePart(path string, md []string, d schema.Dataset, rows []table.Row, opts Options) (File, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to create local file writer: %w", err)
	}

	pw, err := writer.NewCSVWriter(md, fw, marshalParallel)
	if err != nil {
		fw.Close()
		os.Remove(path)
		return File{}, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	fail := func(err error) (File, error) {
		pw.WriteStop()
		fw.Close()
		os.Remove(path)
		return File{}, err
	}

	for i, row := range rows {
		rec, err := record(d, row, opts.OnInvalid)
		if err != nil {
			return fail(fmt.Errorf("row %d: %w", i+1, err))
		}
		if err := pw.Write(rec); err != nil {
			return fail(fmt.Errorf("error writing row %d: %w", i+1, err))
		}

		// Flush periodically for large files
		if (i+1)%flushEvery == 0 {
			opts.Logger.Printf("%s: written %d/%d records", d.Name, i+1, len(rows))
			if err := pw.Flush(true); err != nil {
				return fail(fmt.Errorf("error flushing: %w", err))
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(path)
		return File{}, fmt.Errorf("error in WriteStop: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(path)
		return File{}, fmt.Errorf("error closing file writer: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to get file info: %w", err)
	}
	return File{Path: path, Rows: len(rows), Bytes: info.Size()}, nil
}

func record(d schema.Dataset, row table.Row, onInvalid InvalidFunc) ([]interface{}, error) {
	rec := make([]interface{}, len(d.Columns))
	for j, c := range d.Columns {
		if row[j] == nil {
			if c.NotNull {
				return nil, fmt.Errorf("null in NOT NULL column %s", c.Name)
			}
			continue
		}
		v, err := Cast(c, *row[j])
		if err != nil {
			if onInvalid == nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			if err := onInvalid(c.Name, *row[j], err); err != nil {
				return nil, err
			}
			if c.NotNull {
				return nil, fmt.Errorf("null in NOT NULL column %s", c.Name)
			}
			continue
		}
		rec[j] = v
	}
	return rec, nil
}
