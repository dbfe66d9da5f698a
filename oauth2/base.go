package oauth2

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// BaseOAuth2 holds what every provider shares: the client registration, the
// redirect and callback routes, and the HTTP client used to talk to the provider.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// AuthFailureUrl receives the browser when the exchange or user fetch fails.
	// Empty means a 401 is written instead.
	AuthFailureUrl string

	HandleClaims HandleClaimsFunc

	// HTTPClient is used for the token exchange and user info requests.
	// Defaults to an instrumented client.
	HTTPClient *http.Client

	Logger *slog.Logger

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, handleClaims HandleClaimsFunc) *BaseOAuth2 {
	out := &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		HandleClaims: handleClaims,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/{$}", OauthRedirector(&out.oauthConfig))
	return out
}

// ServeHTTP serves the redirect at "/" and the provider routes below it.
// Mount it under a prefix with http.StripPrefix.
func (b *BaseOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	b.mux.ServeHTTP(w, r)
}

func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider's auth and token URLs.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// Config returns a copy of the OAuth2 client configuration.
func (b *BaseOAuth2) Config() oauth2.Config {
	return b.oauthConfig
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// ExchangeContext carries the HTTP client into oauth2's token exchange.
func (b *BaseOAuth2) ExchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.getHTTPClient())
}

func (b *BaseOAuth2) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *BaseOAuth2) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.logger().Info("oauth login failed", "err", err)
	if b.AuthFailureUrl == "" {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, b.AuthFailureUrl, http.StatusTemporaryRedirect)
}
