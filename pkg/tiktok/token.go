package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"socialcrawl/pkg/auth"
	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
)

// TokenExchanger obtains client-credential tokens. Each exchange is a
// single attempt; failures surface as credential errors.
type TokenExchanger struct {
	exec         *httpx.Executor
	baseURL      string
	clientKey    string
	clientSecret string
}

// NewTokenExchanger creates an exchanger for the given application
func NewTokenExchanger(exec *httpx.Executor, baseURL, clientKey, clientSecret string) *TokenExchanger {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &TokenExchanger{
		exec:         exec,
		baseURL:      baseURL,
		clientKey:    clientKey,
		clientSecret: clientSecret,
	}
}

// Exchange requests a new access token
func (t *TokenExchanger) Exchange(ctx context.Context) (auth.Credential, error) {
	values := url.Values{}
	values.Set("client_key", t.clientKey)
	values.Set("client_secret", t.clientSecret)
	values.Set("grant_type", "client_credentials")

	d := t.exec.Execute(ctx, httpx.NewFormRequest(TokenURL(t.baseURL), values))
	if !d.OK() {
		e := d.AsError("tiktok token exchange failed: " + d.Kind.String())
		e.Type = errs.ErrorTypeCredential
		return auth.Credential{}, e
	}

	var resp tokenResponse
	if err := json.Unmarshal(d.Body, &resp); err != nil {
		return auth.Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: "tiktok token response is not JSON",
			Code:    d.Status,
			Body:    d.Snippet(),
			Err:     err,
		}
	}
	if resp.AccessToken == "" {
		return auth.Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: fmt.Sprintf("tiktok token response has no access_token (%s: %s)", resp.Error, resp.ErrorDescription),
			Code:    d.Status,
			Body:    d.Snippet(),
		}
	}

	return auth.Credential{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
		ObtainedAt:  time.Now(),
	}, nil
}
