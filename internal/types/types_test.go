package types

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendAndAddColumn(t *testing.T) {
	tbl := NewTable([]string{"Name", "MC_USD_Billion"})
	tbl.AppendRecord(Record{Name: "Bank A", MetricUSD: 100})
	tbl.AppendRecord(Record{Name: "Bank B", MetricUSD: 50})

	tbl.AddColumn("Double", func(row []any) any { return row[1].(float64) * 2 })

	assert.Equal(t, []string{"Name", "MC_USD_Billion", "Double"}, tbl.Columns)
	assert.Equal(t, []any{"Bank A", 100.0, 200.0}, tbl.Rows[0])
	assert.Equal(t, []any{200.0, 100.0}, tbl.Column("Double"))
	assert.Equal(t, 2, tbl.Len())
	assert.Nil(t, tbl.Column("missing"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))
}

func TestTable_CloneIsIndependent(t *testing.T) {
	tbl := NewTable([]string{"Name", "MC_USD_Billion"})
	tbl.AppendRecord(Record{Name: "Bank A", MetricUSD: 1})

	c := tbl.Clone()
	c.AddColumn("X", func([]any) any { return 0.0 })
	c.Rows[0][0] = "changed"

	assert.Equal(t, []string{"Name", "MC_USD_Billion"}, tbl.Columns)
	assert.Equal(t, []any{"Bank A", 1.0}, tbl.Rows[0])
}

func TestErrors_Unwrap(t *testing.T) {
	err := error(ErrFile("open rates", fs.ErrNotExist))

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "open rates", fe.Op)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var de *DataError
	assert.False(t, errors.As(err, &de))
	assert.Equal(t, "data: lookup: boom", ErrData("lookup", errors.New("boom")).Error())
}
