package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/server"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
	"github.com/radieske/lottery-agency-server/internal/shared/config"
)

func init() {
	pollInterval = 50 * time.Millisecond
}

const agencyFile = `Santiago Lionel,Lorca,30904465,1999-03-17,7574
Joaquin Ignacio,Verdun,30904466,1988-11-09,1234
Ana,De La Cruz,30904467,1970-01-01,7574
Pedro,Gomez,30904468,2001-06-30,42
Lucia,Perez,30904469,1995-02-14,7574
`

func writeData(t *testing.T, id int, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("agency-%d.csv", id)), []byte(content), 0o600))
	return dir
}

type lotteryServer struct {
	addr  string
	store *store.Shared
}

func startServer(t *testing.T, agencies int) lotteryServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	shared := store.NewShared(store.NewMemory())
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	srv := server.New(ln, zap.NewNop(), server.Deps{
		Store:       shared,
		Coordinator: draw.NewCoordinator(draw.NewBarrier(agencies), shared, nil),
	}, server.WithWorkerContext(workerCtx))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		stopWorkers()
		srv.Wait()
	})
	return lotteryServer{addr: ln.Addr().String(), store: shared}
}

func clientConfig(id int, addr, dir string) config.ClientConfig {
	return config.ClientConfig{
		ID:             id,
		ServerAddress:  addr,
		LoopAmount:     100,
		LoopPeriod:     time.Millisecond,
		BatchMaxAmount: 2,
		DataDir:        dir,
	}
}

func TestRunSendsBatchesAndReturnsWinners(t *testing.T) {
	srv := startServer(t, 1)
	dir := writeData(t, 1, agencyFile)

	winners, err := New(clientConfig(1, srv.addr, dir), zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, winners)

	all, err := srv.store.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "Ana", all[2].FirstName)
	assert.Equal(t, "De La Cruz", all[2].LastName)
	assert.Equal(t, 1, all[4].Agency)
}

func TestRunStopsAfterLoopAmount(t *testing.T) {
	srv := startServer(t, 1)
	dir := writeData(t, 1, agencyFile)

	cfg := clientConfig(1, srv.addr, dir)
	cfg.LoopAmount = 1

	winners, err := New(cfg, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, winners, "only the first batch was sent")

	all, err := srv.store.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTwoAgenciesMeetAtTheDraw(t *testing.T) {
	srv := startServer(t, 2)
	dir1 := writeData(t, 1, agencyFile)
	dir2 := writeData(t, 2, "Maria,Lopez,1,2000-01-01,7574\n")

	type result struct {
		winners int
		err     error
	}
	results := make(chan result, 2)
	for _, cfg := range []config.ClientConfig{clientConfig(1, srv.addr, dir1), clientConfig(2, srv.addr, dir2)} {
		go func(cfg config.ClientConfig) {
			n, err := New(cfg, zap.NewNop()).Run(context.Background())
			results <- result{n, err}
		}(cfg)
	}

	got := map[int]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			got[r.winners] = true
		case <-time.After(5 * time.Second):
			t.Fatal("clients did not finish")
		}
	}
	assert.Equal(t, map[int]bool{3: true, 1: true}, got)
}

func TestRunCancelledWhileWaitingForDraw(t *testing.T) {
	srv := startServer(t, 2)
	dir := writeData(t, 1, agencyFile)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := New(clientConfig(1, srv.addr, dir), zap.NewNop()).Run(ctx)
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
}

func TestBadAck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if strings.Contains(line, "BetBatchEnd") {
				_, _ = conn.Write([]byte("[AGENCY 9] BetBatchEnd\n"))
				return
			}
		}
	}()

	dir := writeData(t, 1, agencyFile)
	_, err = New(clientConfig(1, ln.Addr().String(), dir), zap.NewNop()).Run(context.Background())
	assert.ErrorIs(t, err, ErrBadAck)
}

func TestReadBatchRejectsBadNumber(t *testing.T) {
	dir := writeData(t, 1, "Ana,Lopez,1,2000-01-01,siete\n")
	_, err := New(clientConfig(1, "127.0.0.1:1", dir), zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "siete")
}

func TestMissingDataFile(t *testing.T) {
	_, err := New(clientConfig(1, "127.0.0.1:1", t.TempDir()), zap.NewNop()).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
