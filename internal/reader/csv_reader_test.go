package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/zuhrulumam/mortchart/internal/errors"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadAll(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedCount int
		expectError   bool
	}{
		{
			name:          "header and rows",
			content:       "mortalidad,numero_pacientes\nHeart,150\nCancer,300\n",
			expectedCount: 2,
		},
		{
			name:          "empty file yields no rows",
			content:       "",
			expectedCount: 0,
		},
		{
			name:          "header only yields no rows",
			content:       "mortalidad,numero_pacientes\n",
			expectedCount: 0,
		},
		{
			name:          "ragged rows are kept for validation",
			content:       "mortalidad,numero_pacientes\nHeart\nCancer,300,extra\n",
			expectedCount: 2,
		},
		{
			name:        "malformed quoting fails",
			content:     "mortalidad,numero_pacientes\n\"Heart,150\n",
			expectError: true,
		},
		{
			name:          "repeated header columns are read",
			content:       "mortalidad,numero_pacientes,nota,nota\nHeart,150,a,b\nCancer,300,c,d\n",
			expectedCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, "data.csv", tt.content)

			rows, err := ReadAll(context.Background(), path)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, cerrors.ErrLoadFailure), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, rows, tt.expectedCount)
		})
	}
}

func TestReadAll_RowMetadata(t *testing.T) {
	path := writeCSV(t, "HGGA 10 mortalidad.csv", "\ufeffmortalidad,numero_pacientes\nHeart,150\n\"Multi\nline\",7\nFlu,3\n")

	rows, err := ReadAll(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"mortalidad", "numero_pacientes"}, rows[0].Headers, "BOM must be stripped")
	assert.Equal(t, "HGGA 10 mortalidad.csv", rows[0].Source)
	assert.Equal(t, 2, rows[0].LineNumber)
	assert.Equal(t, 3, rows[1].LineNumber)
	assert.Equal(t, "Multi\nline", rows[1].GetFieldByName("mortalidad"))
	assert.Equal(t, 5, rows[2].LineNumber)
}

func TestReadAll_MissingFile(t *testing.T) {
	_, err := ReadAll(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, cerrors.ErrLoadFailure))
	assert.True(t, errors.Is(err, cerrors.ErrFileNotFound))
}

func TestReadAll_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/mortalidad.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "mortalidad,numero_pacientes\nHeart,150\n")
	}))
	defer srv.Close()

	rows, err := ReadAll(context.Background(), srv.URL+"/data/mortalidad.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mortalidad.csv", rows[0].Source)

	_, err = ReadAll(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerrors.ErrBadStatus))
	assert.True(t, errors.Is(err, cerrors.ErrLoadFailure))
}

func TestCSVReader_ContextCancellation(t *testing.T) {
	var b strings.Builder
	b.WriteString("mortalidad,numero_pacientes\n")
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&b, "cause%d,%d\n", i, i)
	}
	path := writeCSV(t, "large.csv", b.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := NewCSVReader(Config{Source: path, BufferSize: 1})
	rowCh, errCh := reader.Read(ctx)

	readCount := 0
	for range rowCh {
		readCount++
		if readCount >= 10 {
			cancel()
			break
		}
	}

	// Drain so the reader goroutine can exit
	for range rowCh {
	}
	for range errCh {
	}

	assert.GreaterOrEqual(t, readCount, 10)
	assert.Less(t, readCount, 10000, "context cancellation did not stop reading")
}

func TestSourceHelpers(t *testing.T) {
	assert.True(t, IsRemote("https://example.org/a.csv"))
	assert.False(t, IsRemote("data/a.csv"))
	assert.Equal(t, "a.csv", SourceName("https://example.org/x/a.csv?v=1"))
	assert.Equal(t, "a.csv", SourceName("/tmp/x/a.csv"))

	path := writeCSV(t, "stamp.csv", "a,b\n")
	stamp, ok := StatSource(path)
	assert.True(t, ok)
	assert.Equal(t, int64(4), stamp.Size)

	_, ok = StatSource("https://example.org/a.csv")
	assert.False(t, ok)
}

func BenchmarkReadAll(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("mortalidad,numero_pacientes\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "cause%d,%d\n", i, i*10)
	}
	path := filepath.Join(b.TempDir(), "bench.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		b.Fatalf("failed to create test file: %v", err)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := ReadAll(context.Background(), path); err != nil {
			b.Fatal(err)
		}
	}
}
