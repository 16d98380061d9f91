package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/chi/v5"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	buildmcp "github.com/gmahomarf/msbuild-runner/internal/mcp"
	"github.com/gmahomarf/msbuild-runner/internal/metrics"
	"github.com/gmahomarf/msbuild-runner/internal/report"
)

func serveMain(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	logLevel := fs.String("log-level", "", "log level (default from config)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(buildmcp.Instructions)
		return nil
	}

	a, err := newApp(*logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := buildmcp.NewServer(a.engine, a.store, buildmcp.WithSpawner(a.spawner))

	if *httpAddr != "" {
		return serveHTTP(ctx, a.log, newRouter(server, a.metrics, a.store), *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// newRouter mounts the MCP endpoint next to the metrics and run lookups.
func newRouter(server *mcpsdk.Server, m *metrics.Metrics, store report.Store) http.Handler {
	router := chi.NewRouter()
	router.Handle("/mcp", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))
	router.Handle("/metrics", m.Handler())
	router.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		result, err := store.Load(chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, report.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	})
	return router
}

func serveHTTP(ctx context.Context, log logrus.FieldLogger, handler http.Handler, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Infof("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
