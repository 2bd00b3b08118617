package reddit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"socialcrawl/pkg/auth"
	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
)

// TokenExchanger obtains application-only tokens with the client
// credentials grant. Each exchange is a single attempt.
type TokenExchanger struct {
	exec         *httpx.Executor
	authURL      string
	clientID     string
	clientSecret string
	userAgent    string
}

// NewTokenExchanger creates an exchanger for the given script application
func NewTokenExchanger(exec *httpx.Executor, authURL, clientID, clientSecret, userAgent string) *TokenExchanger {
	if authURL == "" {
		authURL = AuthURL
	}
	return &TokenExchanger{
		exec:         exec,
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
	}
}

// Exchange requests a new access token
func (t *TokenExchanger) Exchange(ctx context.Context) (auth.Credential, error) {
	values := url.Values{}
	values.Set("grant_type", "client_credentials")

	req := httpx.NewFormRequest(t.authURL, values)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(t.clientID+":"+t.clientSecret)))
	req.Header.Set("User-Agent", t.userAgent)

	d := t.exec.Execute(ctx, req)
	if !d.OK() {
		e := d.AsError("reddit token exchange failed: " + d.Kind.String())
		e.Type = errs.ErrorTypeCredential
		return auth.Credential{}, e
	}

	var resp tokenResponse
	if err := json.Unmarshal(d.Body, &resp); err != nil {
		return auth.Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: "reddit token response is not JSON",
			Code:    d.Status,
			Body:    d.Snippet(),
			Err:     err,
		}
	}
	if resp.AccessToken == "" {
		reason := strings.Trim(string(resp.Error), `"`)
		if resp.Message != "" {
			reason += ": " + resp.Message
		}
		return auth.Credential{}, &errs.Error{
			Type:    errs.ErrorTypeCredential,
			Message: fmt.Sprintf("reddit token response has no access_token (%s)", reason),
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
