//go:build linux

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// limitFileSize aplica RLIMIT_FSIZE ao processo até o fim do teste
func limitFileSize(t *testing.T, size int64) {
	t.Helper()
	var old unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_FSIZE, &old))
	require.NoError(t, unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: uint64(size), Max: old.Max}))
	t.Cleanup(func() { _ = unix.Setrlimit(unix.RLIMIT_FSIZE, &old) })
}

func TestFileShortWriteLeavesNothing(t *testing.T) {
	tests := []struct {
		name  string
		extra int64 // bytes do lote que cabem antes do limite
	}{
		{"cut inside the first row", 20},
		{"one full row then a cut", 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "bets.csv")
			s := NewFile(path)

			first := makeBatch(1, 1)
			require.NoError(t, s.Append(ctx, first))
			info, err := os.Stat(path)
			require.NoError(t, err)
			prev := info.Size()

			limitFileSize(t, prev+tt.extra)
			assert.ErrorIs(t, s.Append(ctx, makeBatch(2, 5)), ErrStoreWrite)

			info, err = os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, prev, info.Size(), "failed batch is rolled back")

			all, err := s.ScanAll(ctx)
			require.NoError(t, err, "store stays readable")
			assert.Equal(t, first, all)
		})
	}
}
