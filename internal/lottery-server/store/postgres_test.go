package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/lottery-agency-server/internal/shared/db"
)

// requer um Postgres descartável: TEST_POSTGRES_DSN=postgres://...
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pg, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, db.EnsureSchema(ctx, pg))
	_, err = pg.ExecContext(ctx, "TRUNCATE bets")
	require.NoError(t, err)

	s := NewShared(NewPostgres(pg))
	first := makeBatch(1, 3)
	second := makeBatch(2, 4)
	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	got, err := s.ScanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(append(first[:0:0], first...), second...), got)
}
