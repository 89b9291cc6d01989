// Command piper connects to a Piper arm (directly or through
// transport/daemon) and serves a status/control HTTP API plus Prometheus
// metrics over it. Flag parsing, signal-driven shutdown, and the
// state-machine-driven main loop are adapted from the teacher's
// cmd/canopen and cmd/canopen_http entry points, generalized from
// CANopen's EDS-driven node bring-up to client.Piper's connect/enable
// sequence.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/piperbot/piper-go/client"
	"github.com/piperbot/piper-go/driver"
	"github.com/piperbot/piper-go/httpapi"

	_ "github.com/piperbot/piper-go/transport/daemon"
	_ "github.com/piperbot/piper-go/transport/gsusb"
	_ "github.com/piperbot/piper-go/transport/socketcan"
)

func main() {
	backend := flag.String("backend", "socketcan", "transport backend: socketcan, gsusb, daemon")
	channel := flag.String("channel", "can0", "interface name, USB path, or daemon socket path")
	bitrate := flag.Int("bitrate", 1_000_000, "CAN bitrate")
	mode := flag.String("mode", "position", "arm mode to enable at startup: position or mit")
	listenAddr := flag.String("listen", ":8089", "HTTP listen address for the status API and /metrics")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	p := client.New()
	if err := p.Connect(*backend, *channel, *bitrate, driver.Config{Logger: logger}); err != nil {
		logger.Error("piper: connect failed", "error", err)
		os.Exit(1)
	}

	var enableErr error
	switch *mode {
	case "position":
		enableErr = p.EnablePositionMode()
	case "mit":
		enableErr = p.EnableMitMode()
	default:
		logger.Error("piper: unknown mode", "mode", *mode)
		os.Exit(1)
	}
	if enableErr != nil {
		logger.Error("piper: enable failed", "error", enableErr)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(p.Driver().Heartbeat.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewServer(p, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: *listenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("piper: http server error", "error", err)
		}
	}()
	logger.Info("piper: serving", "addr", *listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("piper: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = p.Drop()
}
