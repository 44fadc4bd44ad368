package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"hrops/pkg/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// OAuthIdentity is the verified identity returned by a provider.
type OAuthIdentity struct {
	Email string
	Name  string
}

// OAuthVerifier exchanges an authorization code for a verified identity.
type OAuthVerifier interface {
	AuthCodeURL(state string) string
	Identity(ctx context.Context, code string) (*OAuthIdentity, error)
}

// GoogleVerifier verifies Google sign-in authorization codes.
type GoogleVerifier struct {
	cfg *oauth2.Config
}

func NewGoogleVerifier(clientID, clientSecret, redirectURL string) *GoogleVerifier {
	return &GoogleVerifier{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleVerifier) Identity(ctx context.Context, code string) (*OAuthIdentity, error) {
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange failed: %w", err)
	}

	svc, err := googleoauth.NewService(ctx, option.WithTokenSource(g.cfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("oauth provider returned no email")
	}

	return &OAuthIdentity{Email: info.Email, Name: info.Name}, nil
}

// LoginWithOAuth completes an OAuth sign-in. The account must already be
// provisioned; unknown identities are rejected like bad credentials.
// After identity verification the flow is identical to password login,
// including the device gate.
func (s *Service) LoginWithOAuth(ctx context.Context, verifier OAuthVerifier, code string, dev DeviceContext) (*TokenResponse, error) {
	identity, err := verifier.Identity(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.ErrUserInactive
	}

	return s.completeLogin(ctx, user, dev)
}
