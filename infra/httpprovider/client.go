// Package httpprovider talks to remote authentication and e-mobility
// providers over JSON/HTTP. Token verdicts and charge detail record
// acknowledgements travel as result code names, so a remote answer of
// "not_authorized" is a verdict and only transport failures surface as
// errors.
package httpprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
)

// ErrStatus is wrapped by errors for non-2xx answers.
var ErrStatus = errors.New("httpprovider: unexpected status")

// answer is the common body of every response.
type answer struct {
	Result       string          `json:"result"`
	Message      string          `json:"message,omitempty"`
	SessionID    model.SessionID `json:"session_id,omitempty"`
	AuthorizedBy string          `json:"authorized_by,omitempty"`
}

func (a answer) code() model.ResultCode {
	c, ok := model.ParseResultCode(a.Result)
	if !ok || c == model.ResultUnspecified {
		return model.ResultError
	}
	return c
}

// Client posts JSON documents to a provider.
type Client struct {
	cfg  Config
	base string
	http *http.Client
	log  logger.Logger
}

// NewClient returns a client for cfg. With credentials configured the
// underlying transport fetches and refreshes bearer tokens on demand.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: cfg.timeout()}
	if cfg.ClientID != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = cfg.oauth2().Client(ctx)
		hc.Timeout = cfg.timeout()
	}
	return &Client{
		cfg:  cfg,
		base: strings.TrimRight(cfg.URL, "/"),
		http: hc,
		log:  logger.OrNop(log),
	}, nil
}

// ID returns the provider id.
func (c *Client) ID() model.ProviderID { return c.cfg.ID }

func (c *Client) post(ctx context.Context, path string, in any, out *answer) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("httpprovider %s: marshal: %w", c.cfg.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpprovider %s: %s: %w", c.cfg.ID, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w %d from %s%s: %s", ErrStatus, resp.StatusCode, c.cfg.ID, path, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpprovider %s: decode %s: %w", c.cfg.ID, path, err)
	}
	c.log.Debugw("provider answered", map[string]any{"provider_id": c.cfg.ID, "path": path, "result": out.Result})
	return nil
}
