package store

import (
	"context"
	"errors"
	"sync"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

var (
	// ErrStoreWrite falha de I/O ao persistir um lote
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreRead falha de I/O ao ler as apostas
	ErrStoreRead = errors.New("store read failed")
)

// Store é o armazenamento append-only de apostas
type Store interface {
	// Append persiste o lote inteiro ou nada. Erros envolvem ErrStoreWrite.
	Append(ctx context.Context, batch []bets.Bet) error
	// ScanAll devolve todas as apostas na ordem de inserção. Erros envolvem ErrStoreRead.
	ScanAll(ctx context.Context) ([]bets.Bet, error)
}

// Reader é a parte de leitura usada no sorteio
type Reader interface {
	ScanAll(ctx context.Context) ([]bets.Bet, error)
}

// Shared é o handle único compartilhado por todos os workers.
// Append é serializado pelo mutex, mantido só durante a escrita.
// ScanAll não pega o lock: só é consistente se todas as agências terminaram
// seus lotes antes de qualquer uma pedir o sorteio (convenção do protocolo).
type Shared struct {
	mu    sync.Mutex
	store Store
}

// NewShared envolve o backend com o lock de escrita entre workers
func NewShared(s Store) *Shared { return &Shared{store: s} }

// Append grava o lote segurando o lock
func (s *Shared) Append(ctx context.Context, batch []bets.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Append(ctx, batch)
}

// ScanAll lê sem lock
func (s *Shared) ScanAll(ctx context.Context) ([]bets.Bet, error) {
	return s.store.ScanAll(ctx)
}
