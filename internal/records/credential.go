package records

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/memohai/supportdesk/internal/config"
)

// Authentication modes.
const (
	AuthModeStatic = "static"
	AuthModeOAuth2 = "oauth2"
	AuthModeApp    = "app"
)

// Token types attached to each request.
const (
	TokenTypeTenant = "tenant"
	TokenTypeUser   = "user"
)

// ErrMissingCredential is returned when the selected auth mode has nothing to authenticate with.
var ErrMissingCredential = errors.New("feishu credential is missing")

// Credential is the bearer token sent with each bitable request. An empty
// Token means the Lark client manages its own tenant token.
type Credential struct {
	Token string
	Type  string
}

// RequestOptions renders the credential as per-request SDK options.
func (c Credential) RequestOptions() []larkcore.RequestOptionFunc {
	if strings.TrimSpace(c.Token) == "" {
		return nil
	}
	if c.Type == TokenTypeUser {
		return []larkcore.RequestOptionFunc{larkcore.WithUserAccessToken(c.Token)}
	}
	return []larkcore.RequestOptionFunc{larkcore.WithTenantAccessToken(c.Token)}
}

// CredentialProvider obtains the credential used by a Client.
type CredentialProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// StaticCredential hands out a configured token.
type StaticCredential struct {
	Token string
	Type  string
}

func (s StaticCredential) Credential(context.Context) (Credential, error) {
	if strings.TrimSpace(s.Token) == "" {
		return Credential{}, ErrMissingCredential
	}
	return Credential{Token: strings.TrimSpace(s.Token), Type: normalizeTokenType(s.Type)}, nil
}

// OAuth2Credential fetches a token with the client-credentials grant.
type OAuth2Credential struct {
	Config     clientcredentials.Config
	Type       string
	HTTPClient *http.Client
}

func (o OAuth2Credential) Credential(ctx context.Context) (Credential, error) {
	if o.Config.TokenURL == "" || o.Config.ClientID == "" {
		return Credential{}, ErrMissingCredential
	}
	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}
	tok, err := o.Config.Token(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("fetch oauth2 token: %w", err)
	}
	return Credential{Token: tok.AccessToken, Type: normalizeTokenType(o.Type)}, nil
}

// AppCredential leaves token management to the Lark client.
type AppCredential struct {
	AppID     string
	AppSecret string
}

func (a AppCredential) Credential(context.Context) (Credential, error) {
	if strings.TrimSpace(a.AppID) == "" || strings.TrimSpace(a.AppSecret) == "" {
		return Credential{}, ErrMissingCredential
	}
	return Credential{Type: TokenTypeTenant}, nil
}

// CredentialFromConfig picks the provider for cfg.AuthMode.
func CredentialFromConfig(cfg config.FeishuConfig, httpClient *http.Client) (CredentialProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMode)) {
	case "", AuthModeStatic:
		return StaticCredential{Token: cfg.AccessToken, Type: cfg.TokenType}, nil
	case AuthModeOAuth2:
		return OAuth2Credential{
			Config: clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
				Scopes:       cfg.Scopes,
			},
			Type:       cfg.TokenType,
			HTTPClient: httpClient,
		}, nil
	case AuthModeApp:
		return AppCredential{AppID: cfg.AppID, AppSecret: cfg.AppSecret}, nil
	default:
		return nil, fmt.Errorf("unknown feishu auth mode %q", cfg.AuthMode)
	}
}

func normalizeTokenType(t string) string {
	if strings.EqualFold(strings.TrimSpace(t), TokenTypeUser) {
		return TokenTypeUser
	}
	return TokenTypeTenant
}
