// Command tictactoe-arena runs the multiplayer tic-tac-toe server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing REST, WebSocket, /metrics and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server against a running API, starting an internal one if none answers
//  3. "token" – prints a signed identity token, handy for testing clients
//
// Configuration comes from the environment (and a .env file); flags override it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tictactoe-arena/auth"
	"github.com/wricardo/tictactoe-arena/config"
	"github.com/wricardo/tictactoe-arena/transport/mcp"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tic-Tac-Toe Arena Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newCommand builds the command tree
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "tictactoe-arena",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (overrides HOST)"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (overrides PORT)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging (overrides DEBUG)"},
			&cli.StringFlag{Name: "store", Usage: "Record store: memory, sqlite or redis (overrides STORE_DRIVER)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (overrides NGROK_ENABLED)"},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server with API, WebSocket, metrics and MCP endpoint",
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "REST API to proxy to"},
				},
				Action: runMCP,
			},
			{
				Name:  "token",
				Usage: "Print a signed identity token (requires JWT_SECRET)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nick", Required: true, Usage: "Identity nick"},
					&cli.StringFlag{Name: "email", Usage: "Email of a registered user; empty issues a guest token"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
				},
				Action: runToken,
			},
		},
	}
}

// loadConfig reads the environment and applies flag overrides
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("store") {
		cfg.StoreDriver = cmd.String("store")
	}
	if cmd.IsSet("ngrok") {
		cfg.NgrokEnabled = cmd.Bool("ngrok")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return cfg, nil
}

// runServe starts the HTTP server. If ngrok is enabled it also provisions a
// public tunnel serving the same handler.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Printf("Starting %s v%s", AppName, Version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	app, err := newApp(ctx, cfg, fmt.Sprintf("http://%s", addr))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     app.Handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?token=<token>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)
		log.Printf("Metrics: http://%s/metrics", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, app.Handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serveErr:
		stop()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg *config.Config, handler http.Handler) {
	log.Println("Starting ngrok tunnel...")

	tunnel := ngrokConfig.HTTPEndpoint()
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?token=<token>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runMCP runs an MCP stdio server. It reuses the API at --api-url when it
// answers; otherwise it starts an internal server on a loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	baseURL := cmd.String("api-url")
	log.Printf("Checking for external API server at %s...", baseURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		if err == nil {
			resp.Body.Close()
		}
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		app, err := newApp(ctx, cfg, baseURL)
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer app.Close()

		httpServer := &http.Server{Handler: app.Handler}
		defer httpServer.Close()
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		log.Printf("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	log.Println("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runToken prints a token signed with JWT_SECRET
func runToken(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	tokens, err := auth.NewJWT(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("JWT_SECRET is required to issue tokens: %w", err)
	}
	token, err := tokens.Sign(cmd.String("nick"), cmd.String("email"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, token)
	return nil
}
