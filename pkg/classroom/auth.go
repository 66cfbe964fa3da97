package classroom

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var scopes = []string{
	"https://www.googleapis.com/auth/classroom.courses.readonly",
	"https://www.googleapis.com/auth/classroom.course-work.readonly",
}

type AuthService struct {
	config *oauth2.Config
}

func NewAuthService(clientID, clientSecret, redirectURI string) *AuthService {
	return &AuthService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// GetAuthURL builds the consent URL. prompt=consent forces Google to issue a
// refresh token even when the user already granted access before.
func (a *AuthService) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode trades the callback code for a refresh token.
func (a *AuthService) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}

	if token.RefreshToken == "" {
		return "", fmt.Errorf("exchange code: response contains no refresh token")
	}

	return token.RefreshToken, nil
}

func (a *AuthService) tokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}
