package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-match-server/internal/broadcast"
	"github.com/park285/chess-match-server/internal/config"
	"github.com/park285/chess-match-server/internal/eval"
	"github.com/park285/chess-match-server/internal/evalcache"
	"github.com/park285/chess-match-server/internal/gateway"
	"github.com/park285/chess-match-server/internal/match"
	"github.com/park285/chess-match-server/internal/obslog"
	"github.com/park285/chess-match-server/internal/registry"
	"github.com/park285/chess-match-server/internal/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("redis connect error: %v", err)
	}
	pingCancel()

	snapshots := store.NewRedisStore(rdb, cfg.SnapshotTTL)
	broadcaster := broadcast.NewRedisBroadcaster(rdb)

	cache := evalcache.New[eval.Evaluation](cfg.CacheCapacity)
	remoteBase := cfg.EvalBaseURL
	if !cfg.EvalEnabled {
		remoteBase = "" // a blank base keeps the remote provider disabled
	}
	facade := eval.NewFacade(cache,
		eval.NewRemoteProvider(remoteBase, cfg.EvalTimeout),
		eval.NewHeuristicProvider(),
	)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()

	reg := registry.New(baseCtx, match.Deps{
		Store:       snapshots,
		Broadcast:   broadcaster,
		Eval:        facade,
		RobotDelay:  cfg.RobotDelay,
		EvalTimeout: cfg.EvalTimeout,
	})
	if err := reg.RestoreAll(baseCtx); err != nil {
		obslog.L().Warn("restore_all_failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: gateway.New(reg, broadcaster).Handler(),
	}
	go func() {
		obslog.L().Info("server_listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("server_shutdown_begin")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = srv.Shutdown(shutCtx)
	shutCancel()

	baseCancel()
	reg.StopAll()
	_ = rdb.Close()
	obslog.L().Info("server_shutdown_done")
}
