package query

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
	"github.com/mehmetymw/banketl/internal/util"
)

// Runner executes read queries against the loaded store and prints each
// result to out.
type Runner struct {
	db     *sql.DB
	out    io.Writer
	logger *zap.Logger
}

func New(db *sql.DB, out io.Writer, logger *zap.Logger) *Runner {
	return &Runner{db: db, out: out, logger: logger}
}

// Run executes a literal statement. Use RunParams for anything built from
// untrusted input.
func (r *Runner) Run(ctx context.Context, query string) (*types.Table, error) {
	return r.RunParams(ctx, query)
}

func (r *Runner) RunParams(ctx context.Context, query string, args ...any) (*types.Table, error) {
	fmt.Fprintln(r.out, query)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Query failed", zap.String("query", query), zap.Error(err))
		return nil, types.ErrStore("query", err)
	}
	defer rows.Close()

	t, err := scan(rows)
	if err != nil {
		return nil, types.ErrStore("scan", err)
	}

	r.logger.Debug("Query finished",
		zap.String("query", query),
		zap.Int("rows", t.Len()),
		zap.Duration("duration", time.Since(start)))

	if err := Print(r.out, t); err != nil {
		return nil, types.ErrStore("print", err)
	}
	return t, nil
}

// RunAll runs queries in order and stops at the first failure.
func (r *Runner) RunAll(ctx context.Context, queries []string) ([]*types.Table, error) {
	out := make([]*types.Table, 0, len(queries))
	for _, q := range queries {
		t, err := r.Run(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}

func scan(rows *sql.Rows) (*types.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := types.NewTable(cols)

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = util.NormalizeValue(v)
		}
		t.Rows = append(t.Rows, vals)
	}
	return t, rows.Err()
}

// Print writes t as a tab-aligned grid with a leading row number.
func Print(w io.Writer, t *types.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(t.Columns, "\t"))
	for i, row := range t.Rows {
		parts := make([]string, len(row))
		for j, v := range row {
			parts[j] = util.FormatValue(v)
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(parts, "\t"))
	}
	return tw.Flush()
}
