package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drmkeys/backend-go/pkg/access"
	"github.com/drmkeys/backend-go/pkg/conditions"
	"github.com/drmkeys/backend-go/pkg/keys"
	"github.com/drmkeys/backend-go/pkg/protect"
)

type keyService struct {
	creator  *protect.Creator
	provider *access.Provider
}

// LoadKeyRoutes mounts the content-key operations: derive, create-all,
// unwrap and transfer.
func LoadKeyRoutes(creator *protect.Creator, provider *access.Provider) chi.Router {
	s := keyService{creator: creator, provider: provider}
	r := chi.NewRouter()
	r.Route("/", func(r chi.Router) {
		r.Post("/derive", s.derive)
		r.Post("/", s.createAll)
		r.Post("/unwrap", s.unwrap)
		r.Post("/transfer", s.transfer)
	})
	return r
}

type deriveRequest struct {
	Salt string `json:"salt"`
}

func (s keyService) derive(w http.ResponseWriter, r *http.Request) {
	var req deriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode derive request", http.StatusBadRequest)
		return
	}
	pair, err := keys.Derive(req.Salt)
	if err != nil {
		slog.Error("could not derive key pair", "error", err)
		http.Error(w, "could not derive key pair", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type createRequest struct {
	Salt               string                   `json:"salt"`
	Protection         *protect.ProtectionInput `json:"protection,omitempty"`
	PrivateKey         string                   `json:"privateKey,omitempty"`
	RecipientPublicKey string                   `json:"recipientPublicKey,omitempty"`
	SkipEcies          bool                     `json:"skipEcies,omitempty"`
}

func (s keyService) createAll(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode create request", http.StatusBadRequest)
		return
	}
	result, err := s.creator.CreateAll(r.Context(), protect.CreateRequest{
		Salt:               req.Salt,
		Protection:         req.Protection,
		PrivateKey:         req.PrivateKey,
		RecipientPublicKey: req.RecipientPublicKey,
		SkipEcies:          req.SkipEcies,
	})
	if err != nil {
		var verr *conditions.ValidationError
		switch {
		case errors.Is(err, protect.ErrNoEncodingPerformed):
			http.Error(w, "NO_ENCODING_PERFORMED", http.StatusBadRequest)
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		default:
			slog.Error("could not create keystores", "error", err)
			http.Error(w, "could not create keystores", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type unwrapRequest struct {
	Kid      string `json:"kid"`
	Envelope string `json:"envelope"`
}

func (s keyService) unwrap(w http.ResponseWriter, r *http.Request) {
	var req unwrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode unwrap request", http.StatusBadRequest)
		return
	}
	result, err := s.provider.Unwrap(req.Kid, req.Envelope)
	if err != nil {
		if errors.Is(err, access.ErrUnauthorizedProcessor) {
			http.Error(w, "UNAUTHORIZED_PROCESSOR", http.StatusUnauthorized)
			return
		}
		slog.Error("could not unwrap envelope", "kid", req.Kid, "error", err)
		http.Error(w, "could not unwrap envelope", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transferRequest struct {
	Kid          string `json:"kid"`
	Envelope     string `json:"envelope"`
	NewPublicKey string `json:"newPublicKey"`
	Format       string `json:"format,omitempty"`
}

func (s keyService) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode transfer request", http.StatusBadRequest)
		return
	}
	result, err := s.provider.Transfer(r.Context(), req.Kid, req.Envelope, req.NewPublicKey,
		access.TransferOptions{Format: protect.KeyFormat(req.Format)})
	if err != nil {
		if errors.Is(err, access.ErrUnauthorizedProcessor) {
			http.Error(w, "UNAUTHORIZED_PROCESSOR", http.StatusUnauthorized)
			return
		}
		slog.Error("could not transfer envelope", "kid", req.Kid, "error", err)
		http.Error(w, "could not transfer envelope", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
