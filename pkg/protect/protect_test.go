package protect

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/drmkeys/backend-go/pkg/conditions"
)

// test doubles shared by the encoder and orchestrator tests

type stubEncryptor struct {
	err        error
	ciphertext string
	dataHash   string
	lastConds  conditions.Node
	lastPlain  string
}

func (s *stubEncryptor) Encrypt(_ context.Context, conds conditions.Node, plaintextB64 string) (string, string, error) {
	s.lastConds = conds
	s.lastPlain = plaintextB64
	if s.err != nil {
		return "", "", s.err
	}
	ciphertext := s.ciphertext
	if ciphertext == "" {
		ciphertext = base64.StdEncoding.EncodeToString([]byte("ciphertext"))
	}
	dataHash := s.dataHash
	if dataHash == "" {
		dataHash = "0ff1ce"
	}
	return ciphertext, dataHash, nil
}

type stubGateway struct {
	supported   bool
	probeErr    error
	registerErr error
	registered  []string
}

func (g *stubGateway) SupportsLitProtocol(context.Context) (bool, error) {
	return g.supported, g.probeErr
}

func (g *stubGateway) RegisterIPWithKey(_ context.Context, ledger, contentID, wrappedKey string) (string, error) {
	if g.registerErr != nil {
		return "", g.registerErr
	}
	g.registered = append(g.registered, contentID)
	return "0xreceipt", nil
}

type stubDialer struct {
	gateway *stubGateway
	err     error
}

func (d *stubDialer) Dial(ProtectionInput) (AuthorityGateway, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.gateway, nil
}

var errBoom = errors.New("boom")
