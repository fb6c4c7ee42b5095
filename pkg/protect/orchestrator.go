package protect

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/drmkeys/backend-go/pkg/keys"
)

// Creator runs every configured encoder concurrently against one
// derived key and keeps whichever succeed.
type Creator struct {
	Ecies    *EciesEncoder
	Encoders []*AccessEncoder
	Notifier Notifier
	Log      *zap.Logger
}

type CreateRequest struct {
	Salt       string
	Protection *ProtectionInput
	// PrivateKey overrides the creator's ECIES sender key for this call.
	PrivateKey string
	// RecipientPublicKey addresses the ECIES envelope to someone other
	// than the sender.
	RecipientPublicKey string
	SkipEcies          bool
}

type CreateResult struct {
	Kid     string           `json:"kid"`
	Key     string           `json:"key"`
	Results []EncodingResult `json:"results"`
}

// CreateAll derives a (kid, key) pair from the salt and wraps the key
// under every available scheme. Branches fail independently; only an
// empty result set is an error (ErrNoEncodingPerformed). Result order
// is not significant.
func (c *Creator) CreateAll(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	pair, err := keys.Derive(req.Salt)
	if err != nil {
		return nil, err
	}
	return c.encodeAll(ctx, pair, req)
}

// EncodeAll wraps an already-derived pair. Used by callers that manage
// derivation themselves.
func (c *Creator) EncodeAll(ctx context.Context, pair keys.Pair, req CreateRequest) (*CreateResult, error) {
	return c.encodeAll(ctx, pair, req)
}

type branch struct {
	scheme string
	run    func() (EncodingResult, error)
}

func (c *Creator) encodeAll(ctx context.Context, pair keys.Pair, req CreateRequest) (*CreateResult, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	var branches []branch
	if !req.SkipEcies && (c.Ecies != nil || req.PrivateKey != "") {
		branches = append(branches, branch{
			scheme: EciesSystemID,
			run: func() (EncodingResult, error) {
				encoder, err := c.eciesFor(req)
				if err != nil {
					return EncodingResult{}, err
				}
				return encoder.Encode(ctx, pair.Kid, pair.Key, req.Protection, req.RecipientPublicKey)
			},
		})
	}
	for _, encoder := range c.Encoders {
		encoder := encoder
		branches = append(branches, branch{
			scheme: encoder.Profile().SystemID,
			run: func() (EncodingResult, error) {
				return encoder.Encode(ctx, pair.Kid, pair.Key, req.Protection)
			},
		})
	}

	var (
		mu      sync.Mutex
		results []EncodingResult
		wg      sync.WaitGroup
	)
	for _, b := range branches {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := b.run()
			if err != nil {
				var unsupported *UnsupportedSchemeError
				if errors.As(err, &unsupported) {
					log.Info("scheme unsupported, skipped",
						zap.String("scheme", b.scheme),
						zap.String("kid", pair.Kid))
					return
				}
				log.Warn("encoding branch failed",
					zap.String("scheme", b.scheme),
					zap.String("kid", pair.Kid),
					zap.Error(err))
				return
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, ErrNoEncodingPerformed
	}
	log.Info("keystore created",
		zap.String("kid", pair.Kid),
		zap.Int("encodings", len(results)))
	if c.Notifier != nil {
		c.Notifier.KeystoreCreated(ctx, pair.Kid, results)
	}
	return &CreateResult{Kid: pair.Kid, Key: pair.Key, Results: results}, nil
}

func (c *Creator) eciesFor(req CreateRequest) (*EciesEncoder, error) {
	if req.PrivateKey == "" {
		return c.Ecies, nil
	}
	var (
		dialer GatewayDialer
		format KeyFormat
	)
	if c.Ecies != nil {
		dialer = c.Ecies.dialer
		format = c.Ecies.format
	}
	return NewEciesEncoder(EciesEncoderOptions{
		PrivateKey: req.PrivateKey,
		Dialer:     dialer,
		Format:     format,
	})
}
