package transform

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/config"
	"github.com/mehmetymw/banketl/internal/types"
)

type Transformer struct {
	metricColumn string
	currencies   []string
	columnFormat string
	precision    int32
	logger       *zap.Logger
}

func New(rc config.RatesConfig, metricColumn string, logger *zap.Logger) *Transformer {
	logger.Info("Creating transformer",
		zap.String("metric_column", metricColumn),
		zap.Strings("currencies", rc.Currencies),
		zap.String("column_format", rc.ColumnFormat),
		zap.Int32("precision", rc.Places()))
	return &Transformer{
		metricColumn: metricColumn,
		currencies:   rc.Currencies,
		columnFormat: rc.ColumnFormat,
		precision:    rc.Places(),
		logger:       logger,
	}
}

// Transform loads the rate file and returns a copy of tbl with one derived
// column per configured currency.
func (t *Transformer) Transform(tbl *types.Table, ratesPath string) (*types.Table, error) {
	t.logger.Info("Loading rate table", zap.String("path", ratesPath))
	rates, err := LoadRates(ratesPath)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Rate table loaded", zap.Int("currencies", len(rates)))
	return t.Apply(tbl, rates)
}

// Apply resolves every currency before touching the table, so a missing
// rate leaves no partial output.
func (t *Transformer) Apply(tbl *types.Table, rates RateTable) (*types.Table, error) {
	idx := tbl.ColumnIndex(t.metricColumn)
	if idx < 0 {
		return nil, types.ErrData("transform", fmt.Errorf("metric column %q missing from %v", t.metricColumn, tbl.Columns))
	}

	resolved := make([]float64, len(t.currencies))
	for i, cur := range t.currencies {
		rate, err := rates.Lookup(cur)
		if err != nil {
			return nil, err
		}
		resolved[i] = rate
	}

	for i, row := range tbl.Rows {
		if _, ok := row[idx].(float64); !ok {
			return nil, types.ErrData(fmt.Sprintf("row %d", i), fmt.Errorf("metric %v is %T, want float64", row[idx], row[idx]))
		}
	}

	out := tbl.Clone()
	for i, cur := range t.currencies {
		rate := resolved[i]
		col := fmt.Sprintf(t.columnFormat, cur)
		out.AddColumn(col, func(row []any) any {
			return Convert(row[idx].(float64), rate, t.precision)
		})
		t.logger.Debug("Added derived column",
			zap.String("column", col),
			zap.Float64("rate", rate))
	}

	t.logger.Info("Transformation finished",
		zap.Int("rows", out.Len()),
		zap.Strings("columns", out.Columns))
	return out, nil
}

// Convert rounds the float product metric*rate half-to-even at precision
// places. The product is scaled in float arithmetic before rounding, so
// values landing just off a .xx5 tie round the way numpy's round does.
func Convert(metric, rate float64, precision int32) float64 {
	scaled := metric * rate * math.Pow10(int(precision))
	return decimal.NewFromFloat(scaled).
		RoundBank(0).
		Shift(-precision).
		InexactFloat64()
}
