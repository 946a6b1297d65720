package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hunterwarburton/fva/internal/logger"
	"golang.org/x/oauth2"
)

// User is the signed-in identity returned by Auth0.
type User struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Auth0Config holds the tenant settings.
type Auth0Config struct {
	Domain            string
	ClientID          string
	ClientSecret      string
	CallbackURL       string
	LogoutCallbackURL string
}

// Auth0 runs the OAuth2 authorization-code login against an Auth0 tenant.
type Auth0 struct {
	issuer            string
	clientID          string
	logoutCallbackURL string
	oauth             *oauth2.Config
}

// NewAuth0 creates the login flow. Domain may be a bare host or a full URL.
func NewAuth0(cfg Auth0Config) *Auth0 {
	issuer := strings.TrimRight(cfg.Domain, "/")
	if !strings.HasPrefix(issuer, "http://") && !strings.HasPrefix(issuer, "https://") {
		issuer = "https://" + issuer
	}
	return &Auth0{
		issuer:            issuer,
		clientID:          cfg.ClientID,
		logoutCallbackURL: cfg.LogoutCallbackURL,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  issuer + "/authorize",
				TokenURL: issuer + "/oauth/token",
			},
		},
	}
}

// LoginURL is where the browser goes to sign in.
func (a *Auth0) LoginURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// LogoutURL ends the Auth0 session and returns to the configured page.
func (a *Auth0) LogoutURL() string {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	if a.logoutCallbackURL != "" {
		q.Set("returnTo", a.logoutCallbackURL)
	}
	return a.issuer + "/v2/logout?" + q.Encode()
}

// Exchange trades the callback code for tokens and fetches the user profile.
func (a *Auth0) Exchange(ctx context.Context, code string) (*User, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	client := a.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.issuer+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("userinfo for %s has no email", user.Subject)
	}
	logger.Info("User signed in: %s", user.Email)
	return &user, nil
}
