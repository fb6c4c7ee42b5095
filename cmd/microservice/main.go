package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drmkeys/backend-go/api"
	"github.com/drmkeys/backend-go/internal/authority"
	"github.com/drmkeys/backend-go/internal/conf"
	"github.com/drmkeys/backend-go/internal/lit"
	"github.com/drmkeys/backend-go/pkg/access"
	"github.com/drmkeys/backend-go/pkg/protect"
)

// Minimal service entrypoint: no CLI, no profiling, just the key
// routes. The cobra `start` command is the full-featured variant.
func main() {
	config, err := conf.Load()
	if err != nil {
		slog.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	litEndpoint, err := url.Parse(config.LitEndpoint)
	if err != nil {
		slog.Error("bad lit endpoint", "error", err)
		os.Exit(1)
	}
	litClient, err := lit.NewClient(lit.ClientOptions{Endpoint: litEndpoint})
	if err != nil {
		slog.Error("could not build lit client", "error", err)
		os.Exit(1)
	}
	dialer := &authority.Dialer{PrivateKey: config.GatewaySignerKey}

	var eciesEncoder *protect.EciesEncoder
	if config.EciesPrivateKey != "" {
		eciesEncoder, err = protect.NewEciesEncoder(protect.EciesEncoderOptions{
			PrivateKey: config.EciesPrivateKey,
			Dialer:     dialer,
			Format:     protect.KeyFormat(config.KeyFormat),
		})
		if err != nil {
			slog.Error("could not build ecies encoder", "error", err)
			os.Exit(1)
		}
	}
	var encoders []*protect.AccessEncoder
	for _, profile := range []protect.Profile{protect.EOAProfile, protect.SmartAccountProfile} {
		encoder, err := protect.NewAccessEncoder(protect.AccessEncoderOptions{
			Profile:   profile,
			Encryptor: litClient,
			Dialer:    dialer,
			Network:   config.LitNetwork,
		})
		if err != nil {
			slog.Error("could not build access encoder", "error", err)
			os.Exit(1)
		}
		encoders = append(encoders, encoder)
	}
	creator := &protect.Creator{Ecies: eciesEncoder, Encoders: encoders}
	provider, err := access.NewProvider(access.ProviderOptions{
		Processors: config.Processors,
		Format:     protect.KeyFormat(config.KeyFormat),
	})
	if err != nil {
		slog.Error("could not build processor table", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Mount("/keys", api.LoadKeyRoutes(creator, provider))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	server := http.Server{
		Addr:         config.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	<-stop
	if err := server.Shutdown(context.Background()); err != nil {
		slog.Error("shutdown", "error", err)
	}
}
