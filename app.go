package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wricardo/tictactoe-arena/api"
	"github.com/wricardo/tictactoe-arena/auth"
	"github.com/wricardo/tictactoe-arena/config"
	"github.com/wricardo/tictactoe-arena/game/presence"
	"github.com/wricardo/tictactoe-arena/game/room"
	"github.com/wricardo/tictactoe-arena/game/score"
	"github.com/wricardo/tictactoe-arena/game/service"
	"github.com/wricardo/tictactoe-arena/metrics"
	"github.com/wricardo/tictactoe-arena/store"
	"github.com/wricardo/tictactoe-arena/store/redisstore"
	"github.com/wricardo/tictactoe-arena/store/sqlite"
	"github.com/wricardo/tictactoe-arena/transport/mcp"
	"github.com/wricardo/tictactoe-arena/transport/websocket"
)

// App is the wired server: store, dispatcher loop, websocket hub and HTTP routes
type App struct {
	Handler http.Handler

	store    store.Store
	reporter *score.Reporter
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// outboxFunc adapts a function to service.Outbox
type outboxFunc func(connID string, frame []byte)

func (f outboxFunc) Send(connID string, frame []byte) { f(connID, frame) }

// openStore opens the record store selected by cfg.StoreDriver
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case config.DriverMemory, "":
		return store.NewMemory(), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DriverRedis:
		return redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
}

// newApp wires every component and starts the dispatcher and hub loops.
// mcpBaseURL is the REST address the /mcp tools call back into.
func newApp(ctx context.Context, cfg *config.Config, mcpBaseURL string) (*App, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		log.Println("[AUTH] WARNING: JWT_SECRET is not set, using a random secret. Tokens will not survive a restart.")
		secret = auth.RandomSecret()
	}
	tokens, err := auth.NewJWT(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	log.Printf("Using %s record store", cfg.StoreDriver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	reporter := score.New(st, score.Options{
		QueueSize: cfg.ScoreQueueSize,
		Timeout:   cfg.ScoreTimeout,
		Metrics:   m,
	})
	accounts := service.NewAccounts(st, tokens, service.AccountOptions{
		UserTokenTTL:  cfg.UserTokenTTL,
		GuestTokenTTL: cfg.GuestTokenTTL,
		GuestTTL:      cfg.GuestTokenTTL,
	})

	var hub *websocket.Hub
	dispatcher := service.NewDispatcher(
		room.NewRegistry(),
		presence.NewRegistry(tokens),
		outboxFunc(func(connID string, frame []byte) { hub.Send(connID, frame) }),
		reporter,
		service.Options{
			Accounts: accounts,
			Metrics:  m,
			Debug:    cfg.Debug,
		},
	)
	hub = websocket.NewHub(dispatcher, nil)

	mcpClient := mcp.NewClient(mcpBaseURL)
	handler := api.NewServer(dispatcher, accounts, api.Options{
		WebSocket: http.HandlerFunc(hub.ServeWS),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MCP:       mcpClient.HTTPHandler(),
		StaticDir: cfg.StaticDir,
	})

	runCtx, cancel := context.WithCancel(ctx)
	a := &App{
		Handler:  handler,
		store:    st,
		reporter: reporter,
		cancel:   cancel,
	}
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		dispatcher.Run(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		hub.Run(runCtx)
	}()
	return a, nil
}

// Close stops the loops, drains pending score writes and closes the store
func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()
	a.reporter.Close()
	return a.store.Close()
}
