package producer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	sharedkafka "github.com/radieske/lottery-agency-server/internal/shared/kafka"
	"github.com/radieske/lottery-agency-server/pkg/contracts/events"
)

// Writer um writer Kafka por tópico (*kafka.Writer em produção)
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica os eventos do servidor, um writer por tópico.
// A chave da mensagem é o id da agência para manter a ordem por partição.
type KafkaPublisher struct {
	Batches Writer
	Draws   Writer
}

func NewKafkaPublisher(batches, draws Writer) *KafkaPublisher {
	return &KafkaPublisher{Batches: batches, Draws: draws}
}

// PublishBatchStored publica um lote persistido
func (p *KafkaPublisher) PublishBatchStored(ctx context.Context, e events.BatchStored) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return sharedkafka.WriteJSON(ctx, p.Batches, strconv.Itoa(e.Agency), b)
}

// PublishDrawResult publica o resultado do sorteio de uma agência
func (p *KafkaPublisher) PublishDrawResult(ctx context.Context, e events.DrawResult) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return sharedkafka.WriteJSON(ctx, p.Draws, strconv.Itoa(e.Agency), b)
}

// Close finaliza os writers e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return errors.Join(p.Batches.Close(), p.Draws.Close())
}
