package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials obtains service tokens for CLI calls against the
// key service.
type ClientCredentials struct {
	Config    *clientcredentials.Config
	Tokens    *oauth2.Token
	PublicKey []byte
}

func (cc *ClientCredentials) Login() (*oauth2.Token, error) {
	hc := &http.Client{Transport: &clientCredentialFlowTransport{PublicKey: cc.PublicKey}}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)

	tokens, err := cc.Config.Token(ctx)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Client returns an http client that injects the bearer token on every
// request.
func (cc *ClientCredentials) Client() (*http.Client, error) {
	hc := &http.Client{Transport: &clientCredentialFlowTransport{PublicKey: cc.PublicKey}}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)

	_, err := cc.Config.Token(ctx)
	if err != nil {
		return nil, err
	}
	return cc.Config.Client(ctx), nil
}

type clientCredentialFlowTransport struct {
	PublicKey []byte
}

func (t *clientCredentialFlowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Advertise the caller's transfer public key to the service
	if len(t.PublicKey) > 0 {
		req.Header.Set("X-Transfer-PubKey", base64.StdEncoding.EncodeToString(t.PublicKey))
	}
	return http.DefaultTransport.RoundTrip(req)
}
