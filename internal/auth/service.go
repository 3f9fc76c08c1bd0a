package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/domain"
	"github.com/mockmate/mockmate/internal/logging"
)

// sessionTTL bounds how long a signed browser session stays valid.
const sessionTTL = 7 * 24 * time.Hour

// AuthError is a sign-in or sign-out failure reported by the provider
// or the local exchange.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %s: %v", e.Op, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// Service runs the Google OAuth code flow and signs browser sessions.
// The SPA decides whether to open the sign-in URL in a popup or navigate
// outright; either way the flow terminates at the callback, and the
// gateway announces the new identity on that browser's event feed.
type Service struct {
	oauth  *oauth2.Config
	secret []byte
	log    *logging.Logger

	// fetchIdentity resolves the provider token to an Identity.
	// Overridable in tests.
	fetchIdentity func(ctx context.Context, tok *oauth2.Token) (domain.Identity, error)
}

// NewService creates an identity service from configuration. cookieSecret
// signs browser sessions and must be non-empty.
func NewService(cfg config.GoogleConfig, cookieSecret string, log *logging.Logger) *Service {
	s := &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile"},
			Endpoint:     google.Endpoint,
		},
		secret: []byte(cookieSecret),
		log:    log.Sub("auth"),
	}
	s.fetchIdentity = s.googleUserinfo
	return s
}

// NewState returns a random state token for the OAuth round trip.
func NewState() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// SignInURL returns the provider URL that starts the code flow.
func (s *Service) SignInURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// HandleCallback exchanges the authorization code, resolves the user's
// identity, and returns it together with a signed cookie value for the
// browser session.
func (s *Service) HandleCallback(ctx context.Context, code string) (domain.Identity, string, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, "", &AuthError{Op: "exchange code", Err: err}
	}

	identity, err := s.fetchIdentity(ctx, tok)
	if err != nil {
		return domain.Identity{}, "", &AuthError{Op: "fetch userinfo", Err: err}
	}

	cookie, err := s.IssueCookie(identity)
	if err != nil {
		return domain.Identity{}, "", &AuthError{Op: "encode session", Err: err}
	}

	s.log.Info().Str("user", identity.ID).Msg("signed in")
	return identity, cookie, nil
}

// SignOut records the sign-out. The gateway clears the cookie and
// announces the change on the browser's event feed.
func (s *Service) SignOut(identity domain.Identity) {
	if identity.SignedIn() {
		s.log.Info().Str("user", identity.ID).Msg("signed out")
	}
}

// IssueCookie signs a browser-session cookie value for the identity.
func (s *Service) IssueCookie(identity domain.Identity) (string, error) {
	return encodeSession(s.secret, identity, sessionTTL)
}

// Verify decodes a browser-session cookie value into an identity.
func (s *Service) Verify(cookieValue string) (domain.Identity, error) {
	return decodeSession(s.secret, cookieValue)
}

// googleUserinfo fetches the user's profile via the Google userinfo API.
func (s *Service) googleUserinfo(ctx context.Context, tok *oauth2.Token) (domain.Identity, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, tok)))
	if err != nil {
		return domain.Identity{}, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		ID:          info.Id,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	}, nil
}
