package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestLoad_PublishesRowsInOrder(t *testing.T) {
	w := &fakeWriter{}
	s := &Sink{writer: w, topic: "largest-banks", table: "Largest_banks", runID: "run-1", logger: zap.NewNop()}

	tbl := &types.Table{
		Columns: []string{"Name", "MC_USD_Billion"},
		Rows:    [][]any{{"Bank A", 100.0}, {"Bank B", 50.5}},
	}
	require.NoError(t, s.Load(context.Background(), tbl))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "Bank A", string(w.msgs[0].Key))
	assert.Equal(t, "run-1", string(w.msgs[0].Headers[0].Value))

	var m RowMessage
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &m))
	assert.Equal(t, "Largest_banks", m.Table)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, map[string]any{"Name": "Bank B", "MC_USD_Billion": 50.5}, m.Row)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestLoad_WriteFailureIsStoreError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	s := &Sink{writer: w, topic: "t", logger: zap.NewNop()}

	err := s.Load(context.Background(), &types.Table{Columns: []string{"Name"}, Rows: [][]any{{"x"}}})

	var se *types.StoreError
	assert.True(t, errors.As(err, &se), "got %v", err)
}
