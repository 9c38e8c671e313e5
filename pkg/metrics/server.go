package metrics

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer serves g on its own port and returns the server's Shutdown
// func. A nil g serves the default gatherer.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewServeMux(g),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

// NewServeMux routes /metrics to g and lists the registered metric families
// on the index page.
func NewServeMux(g prometheus.Gatherer) *http.ServeMux {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorLog: slogErrorLog{}}))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		families, err := g.Gather()
		if err != nil {
			slog.Warn("gathering metrics for index page", "error", err)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Keyword Search Metrics</h1><p><a href="/metrics">/metrics</a></p><ul>`)
		for _, mf := range families {
			fmt.Fprintf(w, "<li>%s: %s</li>", html.EscapeString(mf.GetName()), html.EscapeString(mf.GetHelp()))
		}
		fmt.Fprint(w, "</ul></body></html>")
	})
	return mux
}

// slogErrorLog routes promhttp's encoding errors to slog.
type slogErrorLog struct{}

func (slogErrorLog) Println(v ...any) {
	slog.Error("metrics scrape error", "error", fmt.Sprint(v...))
}
