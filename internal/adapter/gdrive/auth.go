package gdrive

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/Ning0612/drivemirror/internal/domain"
)

const (
	// DefaultTokenFile is the default path for storing OAuth tokens
	DefaultTokenFile = "gdrive-token.json"

	// AuthModeServiceAccount authenticates with a service-account key file
	AuthModeServiceAccount = "service_account"
	// AuthModeOAuth authenticates with a stored user token
	AuthModeOAuth = "oauth"
)

// AuthOptions selects and configures the credential source
type AuthOptions struct {
	Mode string

	// CredentialsFile is the service-account JSON key (service_account mode)
	CredentialsFile string

	// Scope is a Drive scope URL or short name ("drive", "drive.readonly")
	Scope string

	// OAuth client settings (oauth mode)
	ClientID     string
	ClientSecret string
	TokenPath    string
}

// ResolveScope expands short scope names into Drive scope URLs
func ResolveScope(scope string) string {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "", "drive":
		return drive.DriveScope
	case "drive.readonly", "readonly":
		return drive.DriveReadonlyScope
	default:
		return scope
	}
}

// ClientOptions builds authenticated Drive client options
// Every failure is returned as *domain.AuthError
func ClientOptions(ctx context.Context, opts AuthOptions) ([]option.ClientOption, error) {
	scope := ResolveScope(opts.Scope)

	switch opts.Mode {
	case "", AuthModeServiceAccount:
		ts, err := serviceAccountTokenSource(ctx, opts.CredentialsFile, scope)
		if err != nil {
			return nil, &domain.AuthError{Err: err}
		}
		return []option.ClientOption{option.WithTokenSource(ts)}, nil

	case AuthModeOAuth:
		auth := NewAuthenticator(opts.ClientID, opts.ClientSecret, opts.TokenPath, scope)
		token, err := auth.GetClient(ctx)
		if err != nil {
			return nil, &domain.AuthError{Err: err}
		}
		return []option.ClientOption{option.WithTokenSource(auth.Config().TokenSource(ctx, token))}, nil

	default:
		return nil, &domain.AuthError{Err: fmt.Errorf("unknown auth mode %q", opts.Mode)}
	}
}

// serviceAccountTokenSource loads a service-account key and returns its token source
func serviceAccountTokenSource(ctx context.Context, path, scope string) (oauth2.TokenSource, error) {
	if path == "" {
		return nil, fmt.Errorf("no credentials file configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, scope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}

	return jwtConfig.TokenSource(ctx), nil
}

// Token represents a stored OAuth2 token
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// toOAuth2Token converts to golang.org/x/oauth2.Token
func (t *Token) toOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// fromOAuth2Token creates Token from oauth2.Token
func fromOAuth2Token(t *oauth2.Token) *Token {
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// Authenticator handles OAuth2 user authentication for Google Drive
type Authenticator struct {
	config    *oauth2.Config
	tokenPath string
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(clientID, clientSecret, tokenPath, scope string) *Authenticator {
	if tokenPath == "" {
		tokenPath = DefaultTokenPath()
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{ResolveScope(scope)},
		Endpoint:     google.Endpoint,
	}

	return &Authenticator{
		config:    config,
		tokenPath: tokenPath,
	}
}

// DefaultTokenPath returns the token location under the user config directory
func DefaultTokenPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return DefaultTokenFile
	}
	return filepath.Join(configDir, "drivemirror", DefaultTokenFile)
}

// GetClient returns a valid token, refreshing it when expired
func (a *Authenticator) GetClient(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.loadToken()
	if err != nil {
		return nil, fmt.Errorf("no token found, please run 'drivemirror auth' first")
	}

	if token.Valid() {
		return token, nil
	}

	// Token expired but has refresh token - try to refresh
	if token.RefreshToken != "" {
		refreshedToken, err := a.RefreshToken(ctx, token)
		if err == nil {
			return refreshedToken, nil
		}
	}

	return nil, fmt.Errorf("token expired and refresh failed, please run 'drivemirror auth' to re-authenticate")
}

// generateRandomState generates a cryptographically secure random state string
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthCodeURL returns the consent page URL and the CSRF state it embeds
func (a *Authenticator) AuthCodeURL() (string, string, error) {
	state, err := generateRandomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}

// Exchange trades an authorization code for a token and stores it
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := a.saveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return token, nil
}

// RefreshToken refreshes an expired token
func (a *Authenticator) RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	tokenSource := a.config.TokenSource(ctx, token)
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := a.saveToken(newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	return newToken, nil
}

// loadToken loads a token from file
func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}

	return token.toOAuth2Token(), nil
}

// saveToken saves a token to file atomically using temp file + rename
func (a *Authenticator) saveToken(token *oauth2.Token) error {
	dir := filepath.Dir(a.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	t := fromOAuth2Token(token)
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	tempPath := a.tokenPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp token file: %w", err)
	}

	if err := os.Rename(tempPath, a.tokenPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename token file: %w", err)
	}

	return nil
}

// TokenPath returns the path where the token is stored
func (a *Authenticator) TokenPath() string {
	return a.tokenPath
}

// Config returns the OAuth2 config
func (a *Authenticator) Config() *oauth2.Config {
	return a.config
}
