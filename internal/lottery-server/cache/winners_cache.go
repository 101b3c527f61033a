package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// WinnersCache guarda no Redis o resultado do sorteio por agência
// Client: cliente Redis
// TTL: tempo de expiração dos registros (0 = sem expiração)
type WinnersCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewWinnersCache cria uma instância de cache Redis com TTL configurável
func NewWinnersCache(c *redis.Client, ttl time.Duration) *WinnersCache {
	return &WinnersCache{Client: c, TTL: ttl}
}

const keyReleased = "lottery:draw:released"

// key gera a chave Redis para os ganhadores de uma agência
func key(agency int) string { return "lottery:winners:" + strconv.Itoa(agency) }

// SetWinners armazena a quantidade de ganhadores e marca o sorteio como liberado
func (w *WinnersCache) SetWinners(ctx context.Context, agency, winners int) error {
	pipe := w.Client.TxPipeline()
	pipe.Set(ctx, key(agency), winners, w.TTL)
	pipe.Set(ctx, keyReleased, 1, w.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetWinners lê a quantidade de ganhadores; ok=false se ainda não houver resultado
func (w *WinnersCache) GetWinners(ctx context.Context, agency int) (n int, ok bool, err error) {
	n, err = w.Client.Get(ctx, key(agency)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Released indica se algum worker já reportou o sorteio
func (w *WinnersCache) Released(ctx context.Context) (bool, error) {
	n, err := w.Client.Exists(ctx, keyReleased).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
