package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/anime-relay/internal/platform/config"
	"github.com/example/anime-relay/internal/platform/httpserver"
	"github.com/example/anime-relay/internal/platform/logging"
	"github.com/example/anime-relay/internal/platform/run"
	svcconfig "github.com/example/anime-relay/services/stream-proxy/internal/config"
	"github.com/example/anime-relay/services/stream-proxy/internal/metrics"
	"github.com/example/anime-relay/services/stream-proxy/internal/proxy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	svcCfg := svcconfig.Load()

	opts := []proxy.Option{proxy.WithLogger(log.Named("proxy"))}
	var reg *prometheus.Registry
	if svcCfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, proxy.WithMetrics(metrics.New(reg)))
	}

	h := proxy.New(proxy.Config{
		UserAgent:             svcCfg.UserAgent,
		MaxManifestBytes:      svcCfg.MaxManifestBytes,
		ProxyBase:             svcCfg.ProxyBase(),
		RewriteTagURIs:        svcCfg.RewriteTagURIs,
		ResponseHeaderTimeout: svcCfg.ResponseHeaderTimeout,
	}, opts...)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Logger:             log,
	})
	h.Mount(r, svcCfg.Route)
	if reg != nil {
		r.With(httpserver.CORS(cfg.HTTP.CORSAllowedOrigins)).
			Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	log.Info("stream proxy configured",
		zap.String("service", cfg.ServiceName),
		zap.String("route", svcCfg.Route),
		zap.String("proxy_base", svcCfg.ProxyBase()),
		zap.Bool("rewrite_tag_uris", svcCfg.RewriteTagURIs),
	)

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			runner.Graceful(srv.Shutdown)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
