package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/batch"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/protocol"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
	"github.com/radieske/lottery-agency-server/pkg/contracts/events"
)

// publishTimeout limita Kafka/Redis; falhas só geram log
const publishTimeout = 2 * time.Second

// state do worker: accepting -> (flushing)* -> awaiting_rendezvous -> reporting -> closed
type state int

const (
	stateAccepting state = iota
	stateFlushing
	stateAwaitingRendezvous
	stateReporting
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateAccepting:
		return "accepting"
	case stateFlushing:
		return "flushing"
	case stateAwaitingRendezvous:
		return "awaiting_rendezvous"
	case stateReporting:
		return "reporting"
	default:
		return "closed"
	}
}

type session struct {
	conn  net.Conn
	log   *zap.Logger
	deps  *Deps
	batch *batch.Handler
	state state
}

func newSession(conn net.Conn, log *zap.Logger, deps *Deps) *session {
	ss := &session{
		conn:  conn,
		log:   log.With(zap.String("session", uuid.NewString()[:8]), zap.String("ip", conn.RemoteAddr().String())),
		deps:  deps,
		batch: batch.NewHandler(deps.Store),
	}
	ss.batch.OnFlushed = deps.Hooks.OnBetsStored
	return ss
}

// run processa as mensagens em ordem de chegada até o sorteio ou um erro.
// Qualquer erro encerra só esta conexão; apostas não gravadas são descartadas.
func (ss *session) run(ctx context.Context) {
	defer func() {
		if n := ss.batch.Discard(); n > 0 {
			ss.log.Warn("unflushed bets discarded", zap.Int("cantidad", n), zap.String("state", ss.state.String()))
		}
		ss.state = stateClosed
	}()

	r := protocol.NewReader(ss.conn)
	for {
		msgs, err := r.ReadMessages()
		for _, m := range msgs {
			done, herr := ss.handleMessage(ctx, m)
			if herr != nil {
				ss.fail(herr)
				return
			}
			if done {
				return
			}
		}
		if err != nil {
			ss.fail(err)
			return
		}
	}
}

func (ss *session) handleMessage(ctx context.Context, m protocol.Message) (done bool, err error) {
	switch m.Kind {
	case protocol.KindBet:
		ss.batch.Add(m.Bet)
		ss.log.Debug("bet received",
			zap.String("action", "apuesta_recibida"),
			zap.Int("agency", m.Agency),
			zap.String("dni", m.Bet.Document),
			zap.Int("numero", m.Bet.Number),
		)
		return false, nil

	case protocol.KindBatchEnd:
		ss.state = stateFlushing
		n, err := ss.batch.Flush(ctx)
		if err != nil {
			return false, err
		}
		ss.log.Info("batch stored",
			zap.String("action", "apuesta_almacenada"),
			zap.String("result", "success"),
			zap.Int("agency", m.Agency),
			zap.Int("cantidad", n),
		)
		ss.publishBatch(m.Agency, n)

		// ack: a própria linha recebida
		if err := protocol.WriteLine(ss.conn, m.Raw); err != nil {
			return false, err
		}
		ss.state = stateAccepting
		return false, nil

	case protocol.KindReadyForLottery:
		if n := ss.batch.Discard(); n > 0 {
			ss.log.Warn("ready before batch end, unflushed bets discarded", zap.Int("agency", m.Agency), zap.Int("cantidad", n))
		}
		ss.state = stateAwaitingRendezvous
		ss.log.Info("waiting for all agencies",
			zap.String("action", "sorteo"),
			zap.String("result", "in_progress"),
			zap.Int("agency", m.Agency),
		)

		winners, err := ss.deps.Coordinator.AwaitDraw(ctx, m.Agency)
		if err != nil {
			return false, err
		}

		ss.state = stateReporting
		ss.log.Info("draw completed",
			zap.String("action", "sorteo"),
			zap.String("result", "success"),
			zap.Int("agency", m.Agency),
			zap.Int("cant_ganadores", winners),
		)
		ss.publishDraw(m.Agency, winners)

		if err := protocol.WriteLine(ss.conn, protocol.FormatWinners(winners)); err != nil {
			return false, err
		}
		if ss.deps.Hooks.OnDrawReported != nil {
			ss.deps.Hooks.OnDrawReported()
		}
		return true, nil
	}
	return false, nil
}

// fail registra o erro pela fase; fechamento limpo do par sem apostas pendentes não é erro
func (ss *session) fail(err error) {
	stage := stageOf(err)
	if stage == "read" && ss.batch.Pending() == 0 && ss.state == stateAccepting {
		ss.log.Debug("connection closed by peer", zap.String("action", "receive_message"), zap.String("result", "closed"))
		return
	}
	ss.log.Error("connection aborted",
		zap.String("action", "receive_message"),
		zap.String("result", "fail"),
		zap.String("stage", stage),
		zap.String("state", ss.state.String()),
		zap.Error(err),
	)
	if ss.deps.Hooks.OnError != nil {
		ss.deps.Hooks.OnError(stage)
	}
}

func stageOf(err error) string {
	switch {
	case errors.Is(err, protocol.ErrMalformedRecord):
		return "decode"
	case errors.Is(err, store.ErrStoreWrite):
		return "store_write"
	case errors.Is(err, store.ErrStoreRead):
		return "store_read"
	case errors.Is(err, protocol.ErrConnectionClosed):
		return "read"
	default:
		return "other"
	}
}

func (ss *session) publishBatch(agency, n int) {
	if ss.deps.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := ss.deps.Publisher.PublishBatchStored(ctx, events.BatchStored{Agency: agency, Count: n}); err != nil {
		ss.log.Warn("publish batch_stored failed", zap.Error(err))
	}
}

func (ss *session) publishDraw(agency, winners int) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if ss.deps.Cache != nil {
		if err := ss.deps.Cache.SetWinners(ctx, agency, winners); err != nil {
			ss.log.Warn("winners cache set failed", zap.Error(err))
		}
	}
	if ss.deps.Publisher != nil {
		if err := ss.deps.Publisher.PublishDrawResult(ctx, events.DrawResult{Agency: agency, Winners: winners}); err != nil {
			ss.log.Warn("publish draw_result failed", zap.Error(err))
		}
	}
}
