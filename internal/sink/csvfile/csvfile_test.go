package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
)

func sample() *types.Table {
	return &types.Table{
		Columns: []string{"Name", "MC_USD_Billion", "MC_GBP_Billion", "MC_EUR_Billion", "MC_INR_Billion"},
		Rows: [][]any{
			{"JPMorgan Chase", 432.92, 346.34, 402.62, 35910.71},
			{"Bank of America", 231.52, 185.22, 215.31, 19204.58},
			{"Mitsubishi UFJ Financial Group, Inc.", 141.5, 113.2, 131.6, 11737.43},
		},
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Largest_banks_data.csv")
	s := New(path, zap.NewNop())

	require.NoError(t, s.Load(context.Background(), sample()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestLoad_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\n1,2\n3,4\n5,6\n7,8\n"), 0o644))
	s := New(path, zap.NewNop())

	small := &types.Table{Columns: []string{"Name", "MC_USD_Billion"}, Rows: [][]any{{"Bank A", 100.0}}}
	require.NoError(t, s.Load(context.Background(), small))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,MC_USD_Billion\nBank A,100\n", string(b))
}

func TestLoad_UnwritablePathIsFileError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "out.csv"), zap.NewNop())

	err := s.Load(context.Background(), sample())

	var fe *types.FileError
	assert.True(t, errors.As(err, &fe), "got %v", err)
}

func TestReadFile_TextColumnKeepsNumericLookingNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	in := &types.Table{
		Columns: []string{"Name", "MC_USD_Billion"},
		Rows: [][]any{
			{"1", 2.0},
			{"Infinity", 3.0},
			{"Bank C", nil},
		},
	}
	require.NoError(t, New(path, zap.NewNop()).Load(context.Background(), in))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestReadFile_EmptyIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadFile(path)

	var pe *types.ParseError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}
