package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
	"github.com/mehmetymw/banketl/internal/util"
)

// Sink writes a table to a flat CSV file: header row, then one line per
// row. No index column is written.
type Sink struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Sink {
	logger.Info("Creating CSV sink", zap.String("path", path))
	return &Sink{path: path, logger: logger}
}

func (s *Sink) Name() string { return "csv" }

// Load replaces the file at the sink's path with t.
func (s *Sink) Load(_ context.Context, t *types.Table) error {
	f, err := os.Create(s.path)
	if err != nil {
		return types.ErrFile("create "+s.path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return types.ErrFile("write "+s.path, err)
	}
	if err := f.Close(); err != nil {
		return types.ErrFile("close "+s.path, err)
	}
	s.logger.Info("Table written to CSV",
		zap.String("path", s.path),
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)))
	return nil
}

func (s *Sink) Close() error { return nil }

func Write(w io.Writer, t *types.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = util.FormatValue(row[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile loads a file produced by Sink back into a Table. A column comes
// back as float64 only when every non-empty cell in it is a finite number;
// other columns keep their text. Empty cells are nil.
func ReadFile(path string) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.ErrFile("open "+path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, types.ErrParse("read "+path, err)
	}
	if len(records) == 0 {
		return nil, types.ErrParse("read "+path, errors.New("missing header"))
	}

	header, body := records[0], records[1:]
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = numericColumn(body, i)
	}

	t := types.NewTable(header)
	for _, rec := range body {
		row := make([]any, len(rec))
		for i, cell := range rec {
			switch {
			case cell == "":
				row[i] = nil
			case numeric[i]:
				row[i], _ = util.ParseNumber(cell)
			default:
				row[i] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func numericColumn(rows [][]string, i int) bool {
	seen := false
	for _, rec := range rows {
		if rec[i] == "" {
			continue
		}
		if _, ok := util.ParseNumber(rec[i]); !ok {
			return false
		}
		seen = true
	}
	return seen
}
