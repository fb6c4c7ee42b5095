// Package client is the Go SDK for the key service HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/drmkeys/backend-go/pkg/access"
	"github.com/drmkeys/backend-go/pkg/keys"
	"github.com/drmkeys/backend-go/pkg/protect"
)

type Client struct {
	*http.Client
	Endpoint *url.URL
}

type ClientOptions struct {
	// HttpClient should come from the oauth2 package when the service
	// requires bearer tokens.
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
		client.Endpoint, _ = url.Parse("http://localhost:8080/api/keys")
	}
}

type CreateRequest struct {
	Salt               string                   `json:"salt"`
	Protection         *protect.ProtectionInput `json:"protection,omitempty"`
	PrivateKey         string                   `json:"privateKey,omitempty"`
	RecipientPublicKey string                   `json:"recipientPublicKey,omitempty"`
	SkipEcies          bool                     `json:"skipEcies,omitempty"`
}

func (c *Client) Derive(ctx context.Context, salt string) (*keys.Pair, error) {
	pair := new(keys.Pair)
	err := c.post(ctx, "/derive", map[string]string{"salt": salt}, pair)
	return pair, err
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*protect.CreateResult, error) {
	result := new(protect.CreateResult)
	err := c.post(ctx, "/", req, result)
	return result, err
}

func (c *Client) Unwrap(ctx context.Context, kid, envelope string) (*access.UnwrapResult, error) {
	result := new(access.UnwrapResult)
	err := c.post(ctx, "/unwrap", map[string]string{"kid": kid, "envelope": envelope}, result)
	return result, err
}

func (c *Client) Transfer(ctx context.Context, kid, envelope, newPublicKey string) (*access.TransferResult, error) {
	result := new(access.TransferResult)
	err := c.post(ctx, "/transfer", map[string]string{
		"kid":          kid,
		"envelope":     envelope,
		"newPublicKey": newPublicKey,
	}, result)
	return result, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s%s", c.Endpoint.String(), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var msg bytes.Buffer
		_, _ = msg.ReadFrom(resp.Body)
		return fmt.Errorf("key service returned %s: %s", resp.Status, msg.String())
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(err, errors.New("unable to decode key service response"))
	}
	return nil
}
