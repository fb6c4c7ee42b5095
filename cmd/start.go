package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drmkeys/backend-go/api"
	"github.com/drmkeys/backend-go/api/middleware/auth"
	"github.com/drmkeys/backend-go/internal/authority"
	"github.com/drmkeys/backend-go/internal/conf"
	"github.com/drmkeys/backend-go/internal/db"
	"github.com/drmkeys/backend-go/internal/lit"
	"github.com/drmkeys/backend-go/pkg/access"
	"github.com/drmkeys/backend-go/pkg/protect"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the content-key service",
	Run:   start,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func start(cmd *cobra.Command, args []string) {
	config, err := conf.Load()
	if err != nil {
		slog.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	creator, provider, err := buildCore(config)
	if err != nil {
		slog.Error("could not build key service", "error", err)
		os.Exit(1)
	}

	if config.DatabaseURL != "" {
		dbClient, err := db.NewClient(config.DatabaseURL)
		if err != nil {
			slog.Error("could not establish database connection", "error", err)
			os.Exit(1)
		}
		if err := dbClient.Bootstrap(context.Background()); err != nil {
			slog.Error("could not bootstrap event table", "error", err)
			os.Exit(1)
		}
		creator.Notifier = dbClient
		defer dbClient.Close()
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/api", func(r chi.Router) {
		if config.OidcIssuer != "" {
			r.Use(auth.OidcAuth(config.OidcIssuer))
		}
		r.Mount("/keys", api.LoadKeyRoutes(creator, provider))
	})

	for _, route := range r.Routes() {
		slog.Info("loaded route", "pattern", route.Pattern)
	}

	server := http.Server{
		Addr:         config.ListenAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
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

func buildCore(config *conf.Config) (*protect.Creator, *access.Provider, error) {
	litEndpoint, err := url.Parse(config.LitEndpoint)
	if err != nil {
		return nil, nil, err
	}
	litClient, err := lit.NewClient(lit.ClientOptions{Endpoint: litEndpoint})
	if err != nil {
		return nil, nil, err
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
			return nil, nil, err
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
			return nil, nil, err
		}
		encoders = append(encoders, encoder)
	}

	zapLog, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	creator := &protect.Creator{
		Ecies:    eciesEncoder,
		Encoders: encoders,
		Log:      zapLog,
	}

	provider, err := access.NewProvider(access.ProviderOptions{
		Processors: config.Processors,
		Format:     protect.KeyFormat(config.KeyFormat),
	})
	if err != nil {
		return nil, nil, err
	}
	return creator, provider, nil
}
