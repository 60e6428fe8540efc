package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
	googleIssuer   = "https://accounts.google.com"
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string
	JWKSURL  string

	HTTPClient *http.Client
}

// GoogleDefaultScopes returns the default Google scopes.
func GoogleDefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Google implements Provider using OpenID Connect. The user profile comes
// from the signed id_token rather than a second userinfo round trip; its
// signature is checked against Google's published JWK set.
type Google struct {
	config     GoogleConfig
	httpClient *http.Client
	jwks       *keyfunc.JWKS
}

// NewGoogle creates a Google provider. Fetching the JWK set is deferred
// until the first id_token validation.
func NewGoogle(cfg GoogleConfig) *Google {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = GoogleDefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = googleJWKSURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Google{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *Google) Name() string {
	return "google"
}

// AuthCodeURL implements Provider.
func (p *Google) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	cfg := ApplyAuthCodeOptions(p.config.Scopes, opts...)
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = GoogleDefaultScopes()
	}

	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
	}

	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange implements Provider.
func (p *Google) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	cfg := ApplyExchangeOptions(opts...)

	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}
	if cfg.CodeVerifier != "" {
		data.Set("code_verifier", cfg.CodeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange", err)
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		return nil, goerrors.New("token exchange failed", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExchangeFail).
			WithCode(goerrors.CodeUnauthorized).
			WithMetadata(map[string]any{
				"provider":    p.Name(),
				"status":      resp.StatusCode,
				"error":       tokenResp.Error,
				"description": tokenResp.ErrorDesc,
			})
	}
	if tokenResp.AccessToken == "" {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange",
			goerrors.New("missing access token", goerrors.CategoryAuth))
	}

	expiresAt := time.Time{}
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		IDToken:     tokenResp.IDToken,
		ExpiresAt:   expiresAt,
		Scopes:      splitSpaceScopes(tokenResp.Scope),
		Raw: map[string]any{
			"id_token": tokenResp.IDToken,
		},
	}, nil
}

type googleIDClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// UserInfo implements Provider by validating the id_token signature
// against Google's JWK set and reading its claims.
func (p *Google) UserInfo(ctx context.Context, token *Token) (*RemoteProfile, error) {
	if token == nil || token.IDToken == "" {
		return nil, wrapProviderError(ErrUserInfoFailed, p.Name(), "user_info",
			goerrors.New("missing id token", goerrors.CategoryAuth))
	}

	jwks, err := p.keySet()
	if err != nil {
		return nil, wrapProviderError(ErrIDTokenInvalid, p.Name(), "jwks", err)
	}

	claims := &googleIDClaims{}
	parsed, err := jwt.ParseWithClaims(token.IDToken, claims, jwks.Keyfunc,
		jwt.WithIssuer(googleIssuer),
		jwt.WithAudience(p.config.ClientID),
	)
	if err != nil || !parsed.Valid {
		return nil, wrapProviderError(ErrIDTokenInvalid, p.Name(), "user_info", err)
	}

	return &RemoteProfile{
		ProviderUserID: claims.Subject,
		Provider:       p.Name(),
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
		Raw: map[string]any{
			"sub":            claims.Subject,
			"email":          claims.Email,
			"email_verified": claims.EmailVerified,
			"name":           claims.Name,
			"picture":        claims.Picture,
		},
	}, nil
}

func (p *Google) keySet() (*keyfunc.JWKS, error) {
	if p.jwks != nil {
		return p.jwks, nil
	}

	jwks, err := keyfunc.Get(p.config.JWKSURL, keyfunc.Options{
		Client:            p.httpClient,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, err
	}

	p.jwks = jwks
	return jwks, nil
}

func splitSpaceScopes(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}
