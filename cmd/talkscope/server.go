package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/api"
	"github.com/kalambet/talkscope/internal/config"
	"github.com/kalambet/talkscope/internal/llm"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the talkscope HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, cfg)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		provider, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Analyzer: newRunner(provider, cfg, nil),
			Version:  version,
		})

		slog.Info("MCP server started (stdio transport)")
		err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

// newRunner builds the fallback runner. models overrides the configured
// candidate list when non-empty.
func newRunner(gen llm.Generator, cfg config.Config, models []string) *analysis.Runner {
	if len(models) == 0 {
		models = cfg.Analysis.Models
	}
	return analysis.NewRunner(gen, models,
		analysis.WithStrictSchema(cfg.Analysis.StrictSchema),
		analysis.WithStructuredOutput(cfg.Analysis.StructuredOutput),
	)
}

func runServer(ctx context.Context, cfg config.Config) error {
	fmt.Fprintf(os.Stderr, "talkscope version %s\n", version)

	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	if cfg.LLM.Provider == config.ProviderGemini && !cfg.APIConfigured() {
		printWarning("GEMINI_API_KEY is not set; analysis requests will fail until it is configured")
	} else {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		missing, err := llm.CheckModels(checkCtx, provider, cfg.Analysis.Models, os.Stderr)
		cancel()
		switch {
		case err != nil:
			slog.Warn("could not list provider models", "provider", cfg.LLM.Provider, "error", err)
		case len(missing) == len(cfg.Analysis.Models):
			printWarning("none of the candidate models are listed by %s", cfg.LLM.Provider)
		}
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
	}
	return serve(ctx, ln, cfg, newRunner(provider, cfg, nil))
}

// serve runs the HTTP API on ln until ctx is cancelled, then shuts down
// gracefully. It closes ln.
func serve(ctx context.Context, ln net.Listener, cfg config.Config, an api.Analyzer) error {
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	srv := &http.Server{
		Handler:           api.NewHandler(api.Deps{Analyzer: an, Config: cfg}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printStep("talkscope listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
