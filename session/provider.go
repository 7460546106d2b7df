package session

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/verishda/verishda/internal/errors"
	"golang.org/x/oauth2"
)

const (
	// defaultTokenLifetime applies when neither the token response nor the
	// access token itself state an expiry.
	defaultTokenLifetime = 60 * time.Second
	// expiryMarginPercent of the issued lifetime is used before refreshing.
	expiryMarginPercent = 90
)

// NowTimeFunc can be overridden in tests.
var NowTimeFunc = time.Now

// Authenticator is the identity provider as seen by the actor.
type Authenticator interface {
	// AuthCodeURL returns the URL the browser is sent to. state doubles as
	// the rendezvous correlation id.
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// Provider is an Authenticator backed by an OpenID Connect issuer.
type Provider struct {
	oauth2Config *oauth2.Config
}

var _ Authenticator = (*Provider)(nil)

// Discover loads the issuer's discovery document and returns a Provider for
// the public client clientID.
func Discover(ctx context.Context, issuerURL, clientID, redirectURL string) (*Provider, error) {
	if issuerURL == "" {
		return nil, errors.Wrapf(errors.ErrNotInitialized, "missing issuer url")
	}
	p, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "discovering issuer %s", issuerURL)
	}
	return &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:    clientID,
			Endpoint:    p.Endpoint(),
			RedirectURL: redirectURL,
			Scopes:      []string{oidc.ScopeOpenID, "profile", oidc.ScopeOfflineAccess},
		},
	}, nil
}

func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *Provider) Exchange(ctx context.Context, code, verifier string) (Credentials, error) {
	issued := NowTimeFunc()
	tok, err := p.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "exchanging authorization code")
	}
	return credentialsFromToken(tok, issued), nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	if refreshToken == "" {
		return Credentials{}, errors.Wrapf(errors.ErrInvalidGrant, "no refresh token")
	}
	issued := NowTimeFunc()
	tok, err := p.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "refreshing token")
	}
	return credentialsFromToken(tok, issued), nil
}

// IsTerminalRefreshError reports whether the provider rejected the refresh
// token itself, so retrying cannot succeed.
func IsTerminalRefreshError(err error) bool {
	if errors.Is(err, errors.ErrInvalidGrant) {
		return true
	}
	var re *oauth2.RetrieveError
	return errors.As(err, &re) && re.ErrorCode == "invalid_grant"
}

func credentialsFromToken(tok *oauth2.Token, issued time.Time) Credentials {
	return Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    issued.Add(tokenLifetime(tok, issued) * expiryMarginPercent / 100),
	}
}

func tokenLifetime(tok *oauth2.Token, issued time.Time) time.Duration {
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(issued)
	}
	if exp, ok := accessTokenExpiry(tok.AccessToken); ok {
		return exp.Sub(issued)
	}
	return defaultTokenLifetime
}

// accessTokenExpiry reads the exp claim of a JWT access token. The signature
// is not checked; the value only schedules the next refresh.
func accessTokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
