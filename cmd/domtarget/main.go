// Command domtarget lets an operator point at elements of a live page and
// hands a structured description of the selection to an AI agent.
//
// Usage:
//
//	domtarget -url https://example.com               # launch Chrome on a page
//	domtarget -remote ws://127.0.0.1:9222/devtools/… # attach to a running Chrome
//	domtarget -config domtarget.yaml -mcp            # agent drives it over MCP stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domtarget/dom/cdpdom"
	"github.com/hazyhaar/domtarget/internal/browser"
	"github.com/hazyhaar/domtarget/internal/config"
	"github.com/hazyhaar/domtarget/internal/sink"
	"github.com/hazyhaar/domtarget/payload"
	"github.com/hazyhaar/domtarget/session"
)

const version = "0.1.0"

type flags struct {
	config   string
	url      string
	remote   string
	http     string
	mcp      bool
	logLevel string
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "path to domtarget.yaml config file")
	flag.StringVar(&f.url, "url", "", "page to open for inspection")
	flag.StringVar(&f.remote, "remote", "", "DevTools WebSocket URL of a running Chrome")
	flag.StringVar(&f.http, "http", "", "control API listen address, e.g. 127.0.0.1:7777")
	flag.BoolVar(&f.mcp, "mcp", false, "serve MCP tools on stdio")
	flag.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch f.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("domtarget: .env not loaded", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, f); err != nil {
		logger.Error("domtarget: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.config != "" {
		cfg, err = config.LoadFile(f.config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}
	if f.url != "" {
		cfg.Page.URL = f.url
	}
	if f.remote != "" {
		cfg.Browser.Remote = f.remote
	}
	if f.http != "" {
		cfg.HTTP.Addr = f.http
	}
	if f.mcp {
		cfg.MCP.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if cfg.MCP.Enabled {
		// stdout carries the MCP protocol.
		cfg.Sinks = withoutStdout(cfg.Sinks, logger)
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             browser.ParseMode(cfg.Browser.Mode),
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.Page.URL)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	doc := cdpdom.New(tab.Page,
		cdpdom.WithIgnoreSelector(ignoreSelector(cfg.Inspector)),
		cdpdom.WithLogger(logger),
	)

	router, err := sink.FromConfig(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	defer router.Close()

	scfg := session.Config{
		Doc:          doc,
		Sink:         router,
		Builder:      payload.NewBuilder(payload.WithMaxExcerpt(cfg.Payload.MaxExcerpt), payload.WithLogger(logger)),
		Palette:      cfg.Inspector.Palette,
		HoverOutline: cfg.Inspector.HoverOutline,
		IgnoreClass:  cfg.Inspector.IgnoreClass,
		ToolbarAttr:  cfg.Inspector.ToolbarAttr,
		Logger:       logger,
	}
	if a := router.Archive(); a != nil {
		scfg.History = a.Store()
	}
	sess, err := session.New(scfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	errc := make(chan error, 3)
	go func() {
		if err := doc.Pump(ctx, sess.Post); err != nil {
			errc <- fmt.Errorf("page events: %w", err)
		}
	}()

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
		}
		srv = &http.Server{
			Handler:           sess.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http: %w", err)
			}
		}()
		logger.Info("domtarget: control API listening", "addr", ln.Addr().String())
	}

	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "domtarget", Version: version}, nil)
		sess.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				errc <- fmt.Errorf("mcp: %w", err)
			}
		}()
		logger.Info("domtarget: MCP tools on stdio")
	}

	logger.Info("domtarget: ready", "url", tab.PageURL, "mode", cfg.Browser.Mode)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
			logger.Error("domtarget: http shutdown", "error", sErr)
		}
	}
	logger.Info("domtarget: stopped")
	return err
}

// ignoreSelector mirrors the session ignore predicate for the in-page bridge.
func ignoreSelector(c config.InspectorConfig) string {
	sels := []string{"." + c.IgnoreClass}
	if c.ToolbarAttr != "" {
		sels = append(sels, "["+c.ToolbarAttr+"]")
	}
	return strings.Join(sels, ", ")
}

func withoutStdout(sinks []config.SinkConfig, logger *slog.Logger) []config.SinkConfig {
	out := sinks[:0:0]
	for _, s := range sinks {
		if s.Type == "stdout" {
			logger.Warn("domtarget: stdout sink disabled while MCP uses stdio")
			continue
		}
		out = append(out, s)
	}
	return out
}
