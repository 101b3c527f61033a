package store

import (
	"context"
	"sync"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

// Memory implementa Store em memória (testes e execução local).
// O RWMutex interno só protege o slice; a disciplina entre workers é a do Shared.
type Memory struct {
	mu   sync.RWMutex
	bets []bets.Bet
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, batch []bets.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets = append(m.bets, batch...)
	return nil
}

// ScanAll devolve uma cópia para evitar modificação externa
func (m *Memory) ScanAll(_ context.Context) ([]bets.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]bets.Bet, len(m.bets))
	copy(out, m.bets)
	return out, nil
}
