package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"excalidraw-httpsync/core"
	"excalidraw-httpsync/handlers/api/files"
	"excalidraw-httpsync/handlers/api/rooms"
	"excalidraw-httpsync/handlers/auth"
	authMiddleware "excalidraw-httpsync/middleware"
	"excalidraw-httpsync/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const defaultMaxBodyBytes = 50 << 20

type serverConfig struct {
	signer       *auth.Signer
	maxBodyBytes int64
	gatherer     prometheus.Gatherer
}

func setupRouter(store core.KVStore, cfg serverConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	requireToken := authMiddleware.AuthJWT(cfg.signer)

	r.Route("/rooms/{id}", func(r chi.Router) {
		r.Get("/", rooms.HandleGetScene(store))
		r.With(requireToken).Put("/", rooms.HandlePutScene(store, cfg.maxBodyBytes))
		r.Route("/key", func(r chi.Router) {
			r.Get("/", rooms.HandleGetKey(store))
			r.With(requireToken).Put("/", rooms.HandlePutKey(store))
		})
	})

	r.Route("/files/{id}", func(r chi.Router) {
		r.Get("/", files.HandleGet(store))
		r.With(requireToken).Put("/", files.HandlePut(store, cfg.maxBodyBytes))
	})

	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func maxBodyBytes() int64 {
	raw := os.Getenv("MAX_BODY_BYTES")
	if raw == "" {
		return defaultMaxBodyBytes
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		logrus.WithField("value", raw).Warn("Invalid MAX_BODY_BYTES, using default")
		return defaultMaxBodyBytes
	}
	return n
}

func waitForShutdown(srv *http.Server, store core.KVStore) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s).Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithField("error", err).Error("Failed to shut down server cleanly")
	}
	if err := store.Close(); err != nil {
		logrus.WithField("error", err).Error("Failed to close storage")
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := pflag.String("listen", ":3002", "The address to listen on.")
	logLevel := pflag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	pflag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	signer := auth.NewSigner(os.Getenv("JWT_SECRET"))
	if !signer.Enabled() {
		logrus.Warn("JWT_SECRET is not set. Writes are not authenticated.")
	}

	store := stores.GetStore(reg)
	r := setupRouter(store, serverConfig{
		signer:       signer,
		maxBodyBytes: maxBodyBytes(),
		gatherer:     reg,
	})

	srv := &http.Server{
		Addr:              *listenAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(srv, store)
}
