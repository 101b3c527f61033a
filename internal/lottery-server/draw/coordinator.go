package draw

import (
	"context"
	"sync"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
)

// Coordinator aplica o sorteio depois da barreira.
// Cada worker calcula o próprio resultado varrendo o store; não há agregador central.
type Coordinator struct {
	barrier *Barrier
	store   store.Reader
	hasWon  bets.Predicate

	mu      sync.Mutex
	winners map[int]int

	OnArrive func(ready int) // métricas
}

// Status é um retrato do sorteio para consulta
type Status struct {
	Expected int         `json:"expected"`
	Ready    []int       `json:"ready"`
	Released bool        `json:"released"`
	Winners  map[int]int `json:"winners,omitempty"`
}

// NewCoordinator cria o coordenador. hasWon nil usa bets.HasWon.
func NewCoordinator(barrier *Barrier, reader store.Reader, hasWon bets.Predicate) *Coordinator {
	if hasWon == nil {
		hasWon = bets.HasWon
	}
	return &Coordinator{
		barrier: barrier,
		store:   reader,
		hasWon:  hasWon,
		winners: make(map[int]int),
	}
}

// AwaitDraw registra a agência, espera as N agências e devolve a quantidade
// de apostas ganhadoras dela. A leitura do store é feita sem lock.
func (c *Coordinator) AwaitDraw(ctx context.Context, agency int) (int, error) {
	ready := c.barrier.Arrive(agency)
	if c.OnArrive != nil {
		c.OnArrive(ready)
	}

	if err := c.barrier.Wait(ctx); err != nil {
		return 0, err
	}

	all, err := c.store.ScanAll(ctx)
	if err != nil {
		return 0, err
	}

	n := CountWinners(all, agency, c.hasWon)

	c.mu.Lock()
	c.winners[agency] = n
	c.mu.Unlock()

	return n, nil
}

// Winners devolve o resultado já calculado de uma agência
func (c *Coordinator) Winners(agency int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.winners[agency]
	return n, ok
}

// Status retorna o estado atual da barreira e os resultados já reportados
func (c *Coordinator) Status() Status {
	st := Status{
		Expected: c.barrier.Expected(),
		Ready:    c.barrier.Ready(),
		Released: c.barrier.Released(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.winners) > 0 {
		st.Winners = make(map[int]int, len(c.winners))
		for a, n := range c.winners {
			st.Winners[a] = n
		}
	}
	return st
}

// CountWinners conta as apostas da agência que satisfazem o predicado
func CountWinners(all []bets.Bet, agency int, hasWon bets.Predicate) int {
	n := 0
	for _, b := range all {
		if b.Agency == agency && hasWon(b) {
			n++
		}
	}
	return n
}
