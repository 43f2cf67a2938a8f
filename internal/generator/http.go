package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/zulandar/foreman/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// maxResponseBytes caps how much of a generator response is read.
const maxResponseBytes = 8 << 20

// HTTPBackend posts a JSON Request to a generation endpoint and expects
// {"markdown": "..."} back.
type HTTPBackend struct {
	Endpoint string
	Client   *http.Client
}

type httpResponse struct {
	Markdown string `json:"markdown"`
	Error    string `json:"error"`
}

// NewHTTPBackend returns a backend for endpoint. A nil client uses a plain
// http.Client; timeouts come from the request context.
func NewHTTPBackend(endpoint string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{Endpoint: endpoint, Client: client}
}

// OAuthClient returns an http.Client that attaches client-credentials tokens
// from cfg to every request.
func OAuthClient(ctx context.Context, cfg config.OAuthConfig) *http.Client {
	cc := clientcredentials.Config{
		ClientID:  cfg.ClientID,
		TokenURL:  cfg.TokenURL,
		Scopes:    cfg.Scopes,
		AuthStyle: oauth2.AuthStyleAutoDetect,
	}
	if cfg.ClientSecretEnv != "" {
		cc.ClientSecret = os.Getenv(cfg.ClientSecretEnv)
	}
	return cc.Client(ctx)
}

// Generate performs one POST. 408, 429 and 5xx responses and network
// failures are transient; other non-2xx responses are permanent.
func (b *HTTPBackend) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", Permanent(fmt.Errorf("encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Permanent(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", Transient(fmt.Errorf("read response: %w", err))
	}

	var out httpResponse
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		err := fmt.Errorf("generator returned %s: %s", resp.Status, msg)
		if transientStatus(resp.StatusCode) {
			return "", Transient(err)
		}
		return "", Permanent(err)
	}
	if decodeErr != nil {
		return "", Permanent(fmt.Errorf("decode response: %w", decodeErr))
	}
	return out.Markdown, nil
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// classifyTransportError tags a failed round trip. Token endpoint
// rejections below 500 are permanent; everything else on the wire is
// transient.
func classifyTransportError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil && rErr.Response.StatusCode < 500 &&
		rErr.Response.StatusCode != http.StatusTooManyRequests {
		return Permanent(fmt.Errorf("fetch token: %w", err))
	}
	return Transient(err)
}
