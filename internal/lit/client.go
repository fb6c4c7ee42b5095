// Package lit is the HTTP client for the threshold-encryption network
// node. Connect/disconnect lifecycle belongs to the embedding service;
// this client only performs per-request calls.
package lit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/drmkeys/backend-go/pkg/conditions"
)

const encryptEndpoint = "/web/encrypt"

type Client struct {
	*http.Client
	Endpoint *url.URL
}

type ClientOptions struct {
	HttpClient *http.Client
	Endpoint   *url.URL
}

func NewClient(ops ...ClientOptions) (*Client, error) {
	client := &Client{}
	if len(ops) > 0 {
		client.Client = ops[0].HttpClient
		if ops[0].Endpoint != nil && ops[0].Endpoint.String() != "" {
			client.Endpoint = ops[0].Endpoint
		}
	}
	clientDefaults(client)
	return client, nil
}

func clientDefaults(client *Client) {
	if client.Client == nil {
		client.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if client.Endpoint == nil {
		client.Endpoint, _ = url.Parse("http://localhost:7470")
	}
}

type encryptRequest struct {
	UnifiedAccessControlConditions conditions.Node `json:"unifiedAccessControlConditions"`
	DataToEncrypt                  string          `json:"dataToEncrypt"`
}

type encryptResponse struct {
	Ciphertext        string `json:"ciphertext"`
	DataToEncryptHash string `json:"dataToEncryptHash"`
}

// Encrypt sends the materialized conditions and base64 plaintext to the
// node and returns the ciphertext and data hash. Implements
// protect.Encryptor.
func (c *Client) Encrypt(ctx context.Context, conds conditions.Node, plaintextB64 string) (string, string, error) {
	body, err := json.Marshal(&encryptRequest{
		UnifiedAccessControlConditions: conds,
		DataToEncrypt:                  plaintextB64,
	})
	if err != nil {
		return "", "", err
	}
	endpoint := fmt.Sprintf("%s%s", c.Endpoint.String(), encryptEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", "", errors.Join(err, errors.New("threshold encryption node unreachable"))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("threshold encryption node returned %s", resp.Status)
	}
	var out encryptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", errors.Join(err, errors.New("unable to decode encrypt response"))
	}
	if out.Ciphertext == "" {
		return "", "", errors.New("encrypt response missing ciphertext")
	}
	return out.Ciphertext, out.DataToEncryptHash, nil
}
