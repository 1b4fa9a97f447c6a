package auth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"hermannm.dev/devlog/log"

	"aasquery/backend/internal/config"
)

type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// AuthError means the identity provider rejected the credentials or could not
// be reached. Its message is the provider's.
type AuthError struct {
	Err error
}

func (err *AuthError) Error() string {
	return "failed to acquire access token: " + providerMessage(err.Err)
}

func (err *AuthError) Unwrap() error {
	return err.Err
}

func providerMessage(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorDescription != "" {
		return retrieveErr.ErrorDescription
	}
	return err.Error()
}

// ClientCredentials fetches a new token on every call; tokens are not cached
// across requests.
type ClientCredentials struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

func NewClientCredentials(identity config.Identity, httpClient *http.Client) *ClientCredentials {
	return &ClientCredentials{
		config: clientcredentials.Config{
			ClientID:     identity.ClientID,
			ClientSecret: identity.ClientSecret,
			TokenURL:     identity.TokenURL(),
			Scopes:       []string{identity.Scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

func (cc *ClientCredentials) Token(ctx context.Context) (string, error) {
	if cc.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cc.httpClient)
	}

	token, err := cc.config.Token(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if token.AccessToken == "" {
		return "", &AuthError{Err: errors.New("identity provider returned an empty access token")}
	}

	log.Debugf("acquired access token expiring at %s", token.Expiry.Format("15:04:05"))
	return token.AccessToken, nil
}
