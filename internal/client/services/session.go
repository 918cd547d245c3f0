package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

const (
	keySessionToken    = "session_token"
	keySessionExpiry   = "session_token_expiry"
	keySessionSignedIn = "session_signed_in"
)

// defaultTokenLifetime applies when the provider reports no expiry.
const defaultTokenLifetime = 3600 * time.Second

type SessionState int

const (
	SignedOut SessionState = iota
	Authenticating
	SignedIn
)

func (s SessionState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed in"
	default:
		return "signed out"
	}
}

// EndReason records why the session last went back to SignedOut.
type EndReason int

const (
	// EndSignedOut is the reason of a session that never existed.
	EndSignedOut EndReason = iota
	// EndRevoked follows an explicit sign-out.
	EndRevoked
	// EndExpired follows a forced expiry or an expired restored token.
	EndExpired
	// EndAuthFailed follows a failed token request.
	EndAuthFailed
)

func (r EndReason) String() string {
	switch r {
	case EndRevoked:
		return "signed out by user"
	case EndExpired:
		return "session expired"
	case EndAuthFailed:
		return "sign-in failed"
	default:
		return ""
	}
}

type SessionManager struct {
	kv       metadata.Repository
	provider TokenProvider
	log      logging.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       SessionState
	reason      EndReason
	token       string
	expiry      time.Time
	clientReady bool
}

func NewSessionManager(kv metadata.Repository, provider TokenProvider, log logging.Logger) *SessionManager {
	return &SessionManager{
		kv:       kv,
		provider: provider,
		log:      log.With("component", "session"),
		now:      time.Now,
	}
}

// Restore loads the persisted session. An expired or incomplete one is
// purged and the manager stays SignedOut.
func (s *SessionManager) Restore(ctx context.Context) {
	token, err := s.kv.Get(ctx, keySessionToken)
	if err != nil {
		s.log.Warn(ctx, "session restore failed", "error", err)
		return
	}
	rawExpiry, err := s.kv.Get(ctx, keySessionExpiry)
	if err != nil {
		s.log.Warn(ctx, "session restore failed", "error", err)
		return
	}
	signedIn, err := s.kv.Get(ctx, keySessionSignedIn)
	if err != nil {
		s.log.Warn(ctx, "session restore failed", "error", err)
		return
	}
	if token == nil && rawExpiry == nil && signedIn == nil {
		return
	}

	ms, perr := strconv.ParseInt(string(rawExpiry), 10, 64)
	expiry := time.UnixMilli(ms)
	if len(token) == 0 || string(signedIn) != "true" || perr != nil || !s.now().Before(expiry) {
		s.log.Info(ctx, "stored session discarded")
		s.purge(ctx)
		s.mu.Lock()
		s.reason = EndExpired
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.state, s.token, s.expiry = SignedIn, string(token), expiry
	s.mu.Unlock()
	s.log.Info(ctx, "session restored", "expires", expiry)
}

// Init prepares the token provider.
func (s *SessionManager) Init(ctx context.Context) error {
	return s.provider.Init(ctx)
}

// RequestToken acquires a new token and persists it. On failure the session
// is cleared.
func (s *SessionManager) RequestToken(ctx context.Context, interactive bool) error {
	s.mu.Lock()
	s.state = Authenticating
	s.mu.Unlock()

	tok, err := s.provider.Token(ctx, interactive)
	if err != nil {
		s.log.Warn(ctx, "token request failed", "interactive", interactive, "error", err)
		s.end(ctx, EndAuthFailed)
		return err
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(defaultTokenLifetime)
	}

	s.mu.Lock()
	s.state, s.token, s.expiry = SignedIn, tok.AccessToken, expiry
	s.mu.Unlock()

	err = s.kv.SetMany(ctx, map[string][]byte{
		keySessionToken:    []byte(tok.AccessToken),
		keySessionExpiry:   []byte(strconv.FormatInt(expiry.UnixMilli(), 10)),
		keySessionSignedIn: []byte("true"),
	})
	if err != nil {
		s.log.Warn(ctx, "session not persisted", "error", err)
	}
	s.log.Info(ctx, "signed in", "expires", expiry)
	return nil
}

// SignOut revokes the token when possible and clears the session.
func (s *SessionManager) SignOut(ctx context.Context) {
	token := s.Token()
	if token != "" {
		if err := s.provider.Revoke(ctx, token); err != nil {
			s.log.Warn(ctx, "token revocation failed", "error", err)
		}
	}
	s.end(ctx, EndRevoked)
}

// ForceExpire clears the session without contacting the provider.
func (s *SessionManager) ForceExpire(ctx context.Context) {
	s.end(ctx, EndExpired)
}

func (s *SessionManager) end(ctx context.Context, reason EndReason) {
	s.mu.Lock()
	s.state, s.reason, s.token, s.expiry = SignedOut, reason, "", time.Time{}
	s.mu.Unlock()
	s.purge(ctx)
}

func (s *SessionManager) purge(ctx context.Context) {
	if err := s.kv.DeleteMany(ctx, keySessionToken, keySessionExpiry, keySessionSignedIn); err != nil {
		s.log.Warn(ctx, "stored session not cleared", "error", err)
	}
}

// MarkClientReady records that the remote client initialized.
func (s *SessionManager) MarkClientReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientReady = true
}

// Usable reports whether remote calls can be made right now.
func (s *SessionManager) Usable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SignedIn && s.now().Before(s.expiry) && s.clientReady
}

// NeedsReauth reports a signed-in session whose token has run out while the
// remote client is ready.
func (s *SessionManager) NeedsReauth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SignedIn && !s.now().Before(s.expiry) && s.clientReady
}

func (s *SessionManager) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionManager) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionManager) Reason() EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *SessionManager) Expiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiry
}
