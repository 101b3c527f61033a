package batch

import (
	"context"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

// Appender é o destino do flush; em produção, o *store.Shared que segura o lock entre workers
type Appender interface {
	Append(ctx context.Context, batch []bets.Bet) error
}

// Handler acumula as apostas de uma conexão e descarrega o lote inteiro no BetBatchEnd.
// Não é seguro para uso concorrente: pertence a um único worker.
type Handler struct {
	store Appender
	batch []bets.Bet
	count int

	OnFlushed func(n int) // métricas/eventos após flush com sucesso
}

// NewHandler cria o acumulador de uma conexão
func NewHandler(store Appender) *Handler {
	return &Handler{store: store}
}

// Add acumula uma aposta; operação local, sem contenção
func (h *Handler) Add(b bets.Bet) {
	h.batch = append(h.batch, b)
	h.count++
}

// Pending retorna quantas apostas aguardam flush
func (h *Handler) Pending() int { return h.count }

// Flush grava o lote inteiro numa única chamada. Em caso de erro o lote é
// descartado sem retry: nenhuma aposta dele fica pendente.
func (h *Handler) Flush(ctx context.Context) (int, error) {
	n := h.count
	batch := h.batch
	h.batch = nil
	h.count = 0

	if err := h.store.Append(ctx, batch); err != nil {
		return 0, err
	}
	if h.OnFlushed != nil {
		h.OnFlushed(n)
	}
	return n, nil
}

// Discard descarta as apostas não gravadas e devolve quantas eram
func (h *Handler) Discard() int {
	n := h.count
	h.batch = nil
	h.count = 0
	return n
}
