package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/agency-client/client"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/server"
	"github.com/radieske/lottery-agency-server/internal/shared/config"
	"github.com/radieske/lottery-agency-server/internal/shared/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, ok := os.LookupEnv("SERVICE_NAME"); !ok {
		cfg.ServiceName = "agency-client"
	}
	fs := pflag.NewFlagSet("agency-client", pflag.ExitOnError)
	cfg.RegisterClientFlags(fs)
	_ = fs.Parse(os.Args[1:])
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := server.NotifyShutdown(context.Background())
	defer stop()

	c := client.New(cfg.Client, log)
	if _, err := c.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("interrupted", zap.String("action", "handle_sigterm"), zap.String("result", "success"))
			return
		}
		log.Error("client stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("loop finished", zap.String("action", "loop_finished"), zap.String("result", "success"), zap.Int("client_id", cfg.Client.ID))
}
