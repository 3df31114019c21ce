package httpprovider

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/kilianp07/roamnet/core/model"
)

// DefaultTimeout bounds a single HTTP exchange when the context carries no
// earlier deadline.
const DefaultTimeout = 10 * time.Second

// Config describes a remote provider reachable over HTTP. When ClientID is
// set, requests carry an OAuth2 bearer token obtained with the client
// credentials grant from TokenURL.
type Config struct {
	ID           model.ProviderID `json:"id"`
	URL          string           `json:"url"`
	TimeoutMS    int              `json:"timeout_ms"`
	ClientID     string           `json:"client_id"`
	ClientSecret string           `json:"client_secret"`
	TokenURL     string           `json:"token_url"`
	Scopes       []string         `json:"scopes"`
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("httpprovider: id required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("httpprovider %s: invalid url %q", c.ID, c.URL)
	}
	if c.ClientID != "" && c.TokenURL == "" {
		return fmt.Errorf("httpprovider %s: token_url required with client_id", c.ID)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMS > 0 {
		return time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return DefaultTimeout
}

func (c Config) oauth2() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}
