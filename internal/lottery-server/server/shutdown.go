package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyShutdown devolve um contexto cancelado no primeiro SIGTERM ou SIGINT.
// Passado para Serve, o cancelamento fecha o listener.
func NotifyShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, os.Interrupt)
}
