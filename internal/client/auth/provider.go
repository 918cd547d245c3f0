package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dmitrijs2005/tailorbook/internal/logging"
	"github.com/dmitrijs2005/tailorbook/internal/netx"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Prompt shows the verification URL and user code of a pending device grant.
type Prompt func(ctx context.Context, verificationURL, userCode string)

type Options struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Endpoint overrides google.Endpoint when its URLs are set.
	Endpoint  oauth2.Endpoint
	RevokeURL string

	HTTPClient *http.Client
	Prompt     Prompt
}

// DeviceProvider implements the device authorization grant against Google.
// It is safe for concurrent use.
type DeviceProvider struct {
	opts Options
	log  logging.Logger

	mu           sync.Mutex
	conf         *oauth2.Config
	refreshToken string
}

func NewDeviceProvider(opts Options, log logging.Logger) *DeviceProvider {
	if opts.RevokeURL == "" {
		opts.RevokeURL = DefaultRevokeURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &DeviceProvider{opts: opts, log: log}
}

// SetPrompt replaces the callback used by interactive requests.
func (p *DeviceProvider) SetPrompt(prompt Prompt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.Prompt = prompt
}

// Init builds the OAuth client configuration.
func (p *DeviceProvider) Init(ctx context.Context) error {
	if p.opts.ClientID == "" {
		return ErrNotConfigured
	}

	endpoint := google.Endpoint
	if p.opts.Endpoint.TokenURL != "" {
		endpoint = p.opts.Endpoint
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	p.mu.Lock()
	defer p.mu.Unlock()
	p.conf = &oauth2.Config{
		ClientID:     p.opts.ClientID,
		ClientSecret: p.opts.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       p.opts.Scopes,
	}
	p.log.Debug(ctx, "oauth client initialized", "scopes", strings.Join(p.opts.Scopes, " "))
	return nil
}

// Token returns a fresh access token. With interactive set it runs a device
// grant; otherwise it refreshes using the refresh token of an earlier grant
// and fails with ErrInteractionRequired when there is none.
func (p *DeviceProvider) Token(ctx context.Context, interactive bool) (*oauth2.Token, error) {
	p.mu.Lock()
	conf, refresh, prompt := p.conf, p.refreshToken, p.opts.Prompt
	p.mu.Unlock()

	if conf == nil {
		return nil, ErrNotConfigured
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.opts.HTTPClient)

	var (
		tok *oauth2.Token
		err error
	)
	if interactive {
		tok, err = p.deviceGrant(ctx, conf, prompt)
	} else {
		if refresh == "" {
			return nil, ErrInteractionRequired
		}
		tok, err = conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
		if err != nil {
			err = fmt.Errorf("token refresh failed: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	if tok.RefreshToken != "" {
		p.mu.Lock()
		p.refreshToken = tok.RefreshToken
		p.mu.Unlock()
	}
	return tok, nil
}

func (p *DeviceProvider) deviceGrant(ctx context.Context, conf *oauth2.Config, prompt Prompt) (*oauth2.Token, error) {
	da, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}

	verifyURL := da.VerificationURIComplete
	if verifyURL == "" {
		verifyURL = da.VerificationURI
	}
	if prompt != nil {
		prompt(ctx, verifyURL, da.UserCode)
	}
	p.log.Info(ctx, "waiting for device authorization", "verification_url", verifyURL)

	tok, err := conf.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("device token exchange failed: %w", err)
	}
	return tok, nil
}

// Revoke invalidates token at the provider. The in-memory refresh token is
// dropped whatever the outcome.
func (p *DeviceProvider) Revoke(ctx context.Context, token string) error {
	p.mu.Lock()
	p.refreshToken = ""
	p.mu.Unlock()

	if token == "" {
		return nil
	}

	if err := netx.PostForm(ctx, p.opts.HTTPClient, p.opts.RevokeURL, url.Values{"token": {token}}); err != nil {
		return fmt.Errorf("revoke failed: %w", err)
	}
	return nil
}
