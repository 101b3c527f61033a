//go:build unix

package server

import (
	"context"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
)

func TestSIGTERMStopsServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	shared := store.NewShared(store.NewMemory())
	srv := New(ln, zap.NewNop(), Deps{
		Store:       shared,
		Coordinator: draw.NewCoordinator(draw.NewBarrier(1), shared, nil),
	})

	ctx, stop := NotifyShutdown(context.Background())
	defer stop()

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx) }()

	// garante que o loop já está bloqueado no Accept
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after SIGTERM")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err, "listener closed by the signal")

	srv.Wait()
}
