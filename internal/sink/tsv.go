package sink

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// rowEncoder formats rows as LOAD DATA-compatible TSV: tab-separated fields,
// newline-terminated records, \N for null.
type rowEncoder struct {
	w   io.Writer
	buf []byte // reusable buffer for formatting a single row
}

func newRowEncoder(w io.Writer) *rowEncoder {
	return &rowEncoder{w: w, buf: make([]byte, 0, 4096)}
}

// WriteRow formats a row as tab-separated values terminated by newline.
func (e *rowEncoder) WriteRow(row []any) error {
	e.buf = e.buf[:0]
	for i, val := range row {
		if i > 0 {
			e.buf = append(e.buf, '\t')
		}
		e.buf = appendValue(e.buf, val)
	}
	e.buf = append(e.buf, '\n')
	_, err := e.w.Write(e.buf)
	return err
}

// appendValue appends the bulk-load representation of a value to buf.
// NULL → \N, strings → escaped, numbers → decimal text, bools → 0/1.
func appendValue(buf []byte, val any) []byte {
	if val == nil {
		return append(buf, '\\', 'N')
	}
	switch v := val.(type) {
	case string:
		return appendEscaped(buf, v)
	case []byte:
		return appendEscaped(buf, string(v))
	case int64:
		return fmt.Appendf(buf, "%d", v)
	case int:
		return fmt.Appendf(buf, "%d", v)
	case float64:
		return appendFloat(buf, v)
	case float32:
		return appendFloat(buf, float64(v))
	case bool:
		if v {
			return append(buf, '1')
		}
		return append(buf, '0')
	case time.Time:
		return appendEscaped(buf, v.UTC().Format("2006-01-02 15:04:05"))
	default:
		return appendEscaped(buf, fmt.Sprint(v))
	}
}

// appendEscaped escapes \t, \n, \r, \\ and NUL for bulk-load fields.
func appendEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\t':
			buf = append(buf, '\\', 't')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\\':
			buf = append(buf, '\\', '\\')
		case 0:
			buf = append(buf, '\\', '0')
		default:
			buf = append(buf, s[i])
		}
	}
	return buf
}

func appendFloat(buf []byte, v float64) []byte {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return fmt.Appendf(buf, "%.1f", v)
	}
	return fmt.Appendf(buf, "%g", v)
}

// DirSink writes one <table>.tsv file per table into a directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Table(t *catalog.Table, rows int64) (RowWriter, error) {
	path := filepath.Join(s.dir, t.Name+".tsv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<16)
	return &fileWriter{enc: newRowEncoder(bw), bw: bw, f: f}, nil
}

func (s *DirSink) Close() error { return nil }

type fileWriter struct {
	enc *rowEncoder
	bw  *bufio.Writer
	f   *os.File
}

func (w *fileWriter) WriteRow(row []any) error {
	return w.enc.WriteRow(row)
}

func (w *fileWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
