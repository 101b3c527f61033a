package draw

import (
	"context"
	"sort"
	"sync"
)

// Barrier libera todos os participantes juntos quando N agências distintas chegam.
// É de uso único: depois de liberada continua liberada (um sorteio por execução).
type Barrier struct {
	n        int
	mu       sync.Mutex
	arrived  map[int]struct{}
	released chan struct{}
}

// NewBarrier cria a barreira para n agências
func NewBarrier(n int) *Barrier {
	return &Barrier{
		n:        n,
		arrived:  make(map[int]struct{}, n),
		released: make(chan struct{}),
	}
}

// Arrive registra a agência e devolve quantas agências distintas já chegaram.
// Uma agência repetida não conta duas vezes.
func (b *Barrier) Arrive(agency int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.arrived[agency] = struct{}{}
	ready := len(b.arrived)
	if ready == b.n {
		close(b.released)
	}
	return ready
}

// Wait bloqueia até a liberação. Sem timeout próprio: só retorna antes se ctx for cancelado.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Released informa se a barreira já liberou
func (b *Barrier) Released() bool {
	select {
	case <-b.released:
		return true
	default:
		return false
	}
}

// Expected retorna N
func (b *Barrier) Expected() int { return b.n }

// Ready devolve as agências que já chegaram, ordenadas
func (b *Barrier) Ready() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, 0, len(b.arrived))
	for a := range b.arrived {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}
