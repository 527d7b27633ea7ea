package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/glinharesb/vault-signer/internal/audit"
	"github.com/glinharesb/vault-signer/internal/config"
	"github.com/glinharesb/vault-signer/internal/crypto"
	"github.com/glinharesb/vault-signer/internal/interceptor"
	"github.com/glinharesb/vault-signer/internal/keystore"
	"github.com/glinharesb/vault-signer/internal/ledger"
	"github.com/glinharesb/vault-signer/internal/metrics"
	"github.com/glinharesb/vault-signer/internal/remote"
	"github.com/glinharesb/vault-signer/internal/signer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(config.BuildFlagSet(), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("signer server", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func run(cfg config.Config, log *zap.Logger) error {
	auditLogger := audit.NewLogger(cfg.AuditBuffer, os.Stdout, log)
	defer auditLogger.Close()

	provider, closer, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	pk, err := provider.PublicKey()
	if err != nil {
		return err
	}
	log.Info("provider ready",
		zap.String("provider", cfg.Provider),
		zap.Stringer("public_key", pk),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instrumented, err := metrics.Wrap(cfg.Provider, provider, reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	served := audit.Wrap(cfg.Provider, instrumented, auditLogger)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptor.RecoveryUnary(log),
			interceptor.LoggingUnary(log),
			interceptor.RateLimitUnary(cfg.RateLimitRPS),
			interceptor.AuthUnary(cfg.AuthToken),
		),
		grpc.ChainStreamInterceptor(
			interceptor.RecoveryStream(log),
			interceptor.LoggingStream(log),
			interceptor.RateLimitStream(cfg.RateLimitRPS),
			interceptor.AuthStream(cfg.AuthToken),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load tls: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)
	remote.RegisterSignerServer(srv, remote.NewServer(served, log))
	reflection.Register(srv)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server starting", zap.String("addr", cfg.GRPCAddr))
		if err := srv.Serve(lis); err != nil {
			log.Error("serve", zap.Error(err))
		}
	}()

	var httpSrv *http.Server
	if cfg.MetricsAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newRouter(reg, served),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics serve", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown", zap.Error(err))
		}
	}

	// Graceful shutdown with 10s timeout
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		log.Warn("graceful shutdown timed out, forcing stop")
		srv.Stop()
	}
	return nil
}

func newRouter(reg *prometheus.Registry, p signer.PublicKeyed) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		pk, err := p.PublicKey()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, hex.EncodeToString(pk.Bytes())+"\n")
	}).Methods(http.MethodGet)
	return r
}

// buildProvider returns the configured provider and what must be closed when
// the server stops.
func buildProvider(cfg config.Config, log *zap.Logger) (signer.Provider, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderLedger:
		l, err := ledger.Connect(&remote.Transport{
			Target: cfg.DeviceAddr,
			Token:  cfg.DeviceToken,
		})
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	default:
		return openSoftware(cfg, log)
	}
}

func openSoftware(cfg config.Config, log *zap.Logger) (signer.Provider, io.Closer, error) {
	store, err := openStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	master := cfg.MasterKey
	if master == nil {
		master, err = crypto.GenerateMasterKey()
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		log.Warn("using ephemeral master key")
	}
	vault, err := keystore.NewVault(store, master)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	id := cfg.KeyID
	if id == "" {
		entry, err := vault.Generate(cfg.KeyAlgorithm, map[string]string{"origin": "signer-server"})
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		id = entry.ID
		log.Info("generated key",
			zap.String("key_id", id),
			zap.Stringer("algorithm", cfg.KeyAlgorithm),
		)
	}

	p, err := vault.Open(id)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("open key %s: %w", id, err)
	}
	return p, closers{p, store}, nil
}

func openStore(cfg config.Config, log *zap.Logger) (keystore.Store, error) {
	switch cfg.Store {
	case config.StoreJSON:
		path := filepath.Join(cfg.DataDir, "keys.json")
		log.Info("using persistent store", zap.String("path", path))
		return keystore.NewPersistentStore(path, log)
	case config.StoreLevelDB:
		path := filepath.Join(cfg.DataDir, "keys")
		log.Info("using leveldb store", zap.String("path", path))
		return keystore.NewLevelDBStore(path)
	default:
		log.Info("using in-memory store")
		return keystore.NewMemoryStore(), nil
	}
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}
