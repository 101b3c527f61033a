package client

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/protocol"
	"github.com/radieske/lottery-agency-server/internal/shared/config"
)

// ErrBadAck o servidor respondeu algo diferente da linha BetBatchEnd enviada
var ErrBadAck = errors.New("unexpected ack from server")

// pollInterval prazo de cada leitura; entre elas o contexto é verificado
var pollInterval = time.Second

// Client agência que envia suas apostas em lotes e consulta o sorteio
type Client struct {
	cfg    config.ClientConfig
	log    *zap.Logger
	dialer net.Dialer
}

// New cria o cliente da agência cfg.ID
func New(cfg config.ClientConfig, log *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		log: log.With(zap.Int("client_id", cfg.ID)),
	}
}

// DataFile caminho do CSV de apostas da agência
func (c *Client) DataFile() string {
	return filepath.Join(c.cfg.DataDir, fmt.Sprintf("agency-%d.csv", c.cfg.ID))
}

// Run envia o arquivo em lotes (uma conexão por lote), avisa que terminou e
// espera a quantidade de ganhadores. Cancelar ctx interrompe em até pollInterval.
func (c *Client) Run(ctx context.Context) (int, error) {
	f, err := os.Open(c.DataFile())
	if err != nil {
		c.log.Error("open bets file", zap.String("action", "open_bets_file"), zap.String("result", "fail"), zap.Error(err))
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5

	for sent := 0; sent < c.cfg.LoopAmount; sent++ {
		batch, eof, err := c.readBatch(r)
		if err != nil {
			c.log.Error("read bets file", zap.String("action", "read_bets_file"), zap.String("result", "fail"), zap.Error(err))
			return 0, err
		}
		if len(batch) == 0 {
			break
		}

		if err := c.sendBatch(ctx, batch); err != nil {
			c.log.Error("send batch", zap.String("action", "apuesta_enviada"), zap.String("result", "fail"), zap.Error(err))
			return 0, err
		}
		c.log.Info("batch sent", zap.String("action", "apuesta_enviada"), zap.String("result", "success"), zap.Int("cantidad", len(batch)))

		if eof {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(c.cfg.LoopPeriod):
		}
	}

	winners, err := c.awaitWinners(ctx)
	if err != nil {
		c.log.Error("query winners", zap.String("action", "consulta_ganadores"), zap.String("result", "fail"), zap.Error(err))
		return 0, err
	}
	c.log.Info("winners received", zap.String("action", "consulta_ganadores"), zap.String("result", "success"), zap.Int("cant_ganadores", winners))
	return winners, nil
}

// readBatch lê até BatchMaxAmount apostas; eof indica fim do arquivo
func (c *Client) readBatch(r *csv.Reader) (batch []bets.Bet, eof bool, err error) {
	for len(batch) < c.cfg.BatchMaxAmount {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		number, err := strconv.Atoi(rec[4])
		if err != nil {
			line, _ := r.FieldPos(4)
			return nil, false, fmt.Errorf("%s line %d: number %q: %w", c.DataFile(), line, rec[4], err)
		}
		batch = append(batch, bets.Bet{
			Agency:    c.cfg.ID,
			FirstName: rec[0],
			LastName:  rec[1],
			Document:  rec[2],
			BirthDate: rec[3],
			Number:    number,
		})
	}
	return batch, false, nil
}

func (c *Client) sendBatch(ctx context.Context, batch []bets.Bet) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.ServerAddress)
	if err != nil {
		c.log.Error("connect", zap.String("action", "connect"), zap.String("result", "fail"), zap.Error(err))
		return err
	}
	defer conn.Close()

	for _, b := range batch {
		if err := protocol.WriteLine(conn, protocol.FormatBet(b)); err != nil {
			return err
		}
		c.log.Debug("bet sent", zap.String("action", "apuesta_enviada"), zap.String("dni", b.Document), zap.Int("numero", b.Number))
	}
	end := protocol.FormatBatchEnd(c.cfg.ID)
	if err := protocol.WriteLine(conn, end); err != nil {
		return err
	}

	ack, err := readLine(ctx, conn, bufio.NewReader(conn))
	if err != nil {
		return err
	}
	if ack != end+"\n" {
		return fmt.Errorf("%w: %q", ErrBadAck, ack)
	}
	return nil
}

func (c *Client) awaitWinners(ctx context.Context) (int, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.ServerAddress)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := protocol.WriteLine(conn, protocol.FormatReady(c.cfg.ID)); err != nil {
		return 0, err
	}
	line, err := readLine(ctx, conn, bufio.NewReader(conn))
	if err != nil {
		return 0, err
	}
	return protocol.ParseWinners(line)
}

// readLine lê uma linha completa em janelas de pollInterval, parando se ctx for cancelado
func readLine(ctx context.Context, conn net.Conn, br *bufio.Reader) (string, error) {
	var line string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pollInterval))
		part, err := br.ReadString('\n')
		line += part
		if err == nil {
			return line, nil
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		return "", fmt.Errorf("%w: %v", protocol.ErrConnectionClosed, err)
	}
}
