package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
	"github.com/radieske/lottery-agency-server/pkg/contracts/events"
)

// Publisher publica eventos do servidor (Kafka em produção)
type Publisher interface {
	PublishBatchStored(ctx context.Context, e events.BatchStored) error
	PublishDrawResult(ctx context.Context, e events.DrawResult) error
}

// ResultCache guarda o resultado do sorteio por agência (Redis em produção)
type ResultCache interface {
	SetWinners(ctx context.Context, agency, winners int) error
}

// Hooks callbacks de métricas; qualquer um pode ser nil
type Hooks struct {
	OnConnection   func()
	OnBetsStored   func(n int)
	OnDrawReported func()
	OnError        func(stage string) // métricas por fase
}

// Deps dependências compartilhadas por todos os workers
type Deps struct {
	Store       *store.Shared
	Coordinator *draw.Coordinator
	Publisher   Publisher   // opcional
	Cache       ResultCache // opcional
	Hooks       Hooks
}

// Server aceita conexões das agências e despacha um worker (goroutine) por conexão
type Server struct {
	ln   net.Listener
	log  *zap.Logger
	deps Deps

	shuttingDown atomic.Bool
	closeOnce    sync.Once
	workers      sync.WaitGroup

	// workerCtx nunca é cancelado pelo shutdown: workers em andamento terminam sozinhos
	workerCtx context.Context
}

// Option configura o Server
type Option func(*Server)

// WithWorkerContext troca o contexto base dos workers (padrão: context.Background)
func WithWorkerContext(ctx context.Context) Option {
	return func(s *Server) { s.workerCtx = ctx }
}

// New cria o servidor sobre um listener já aberto (ver Listen)
func New(ln net.Listener, log *zap.Logger, deps Deps, opts ...Option) *Server {
	s := &Server{
		ln:        ln,
		log:       log,
		deps:      deps,
		workerCtx: context.Background(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Addr devolve o endereço de escuta
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve roda o loop de accept até o shutdown. Quando ctx é cancelado o listener
// é fechado, o que desbloqueia o Accept. Erro de accept fora do shutdown também
// encerra o loop (só deveria acontecer com o listener fechado).
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.Shutdown)
	defer stop()

	for {
		s.log.Debug("accept connections", zap.String("action", "accept_connections"), zap.String("result", "in_progress"))

		conn, err := s.ln.Accept()
		if s.shuttingDown.Load() {
			if conn != nil {
				_ = conn.Close()
			}
			return nil
		}
		if err != nil {
			s.log.Warn("accept failed, stopping accept loop",
				zap.String("action", "accept_connections"),
				zap.String("result", "fail"),
				zap.Error(err),
			)
			s.closeListener()
			return nil
		}

		s.log.Info("connection accepted",
			zap.String("action", "accept_connections"),
			zap.String("result", "success"),
			zap.String("ip", conn.RemoteAddr().String()),
		)
		if s.deps.Hooks.OnConnection != nil {
			s.deps.Hooks.OnConnection()
		}

		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			s.handle(conn)
		}()
	}
}

// Shutdown marca o servidor como encerrando e fecha o listener.
// Não cancela nem espera os workers.
func (s *Server) Shutdown() {
	s.shuttingDown.Store(true)
	s.closeListener()
	s.log.Info("shutdown requested", zap.String("action", "handle_sigterm"), zap.String("result", "success"))
}

func (s *Server) closeListener() {
	s.closeOnce.Do(func() {
		if err := s.ln.Close(); err != nil {
			s.log.Warn("listener close", zap.Error(err))
		}
	})
}

// Wait espera os workers já despachados. Um worker parado na barreira
// (menos de N agências) bloqueia para sempre.
func (s *Server) Wait() { s.workers.Wait() }

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	newSession(conn, s.log, &s.deps).run(s.workerCtx)
}
