package oauth2

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	authcore "github.com/gr-backend/authcore"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderGithub is the source name given to GitHub identities.
const ProviderGithub = "github"

type GithubOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL is the URL to fetch user info from. Defaults to GitHub's API.
	// Can be overridden for testing.
	UserInfoURL string
}

func NewGithubOAuth2(clientId string, clientSecret string, callbackUrl string, handleClaims HandleClaimsFunc) *GithubOAuth2 {
	out := &GithubOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleClaims),
		UserInfoURL: "https://api.github.com/user",
	}
	out.oauthConfig.Endpoint = github.Endpoint
	out.oauthConfig.Scopes = []string{"read:user", "user:email"}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

func (g *GithubOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		http.Error(w, "missing oauth state", http.StatusBadRequest)
		return
	}
	clearStateCookie(w)
	if r.FormValue("state") != oauthState.Value {
		http.Error(w, "invalid oauth github state", http.StatusBadRequest)
		return
	}
	if errParam := r.FormValue("error"); errParam != "" {
		g.fail(w, r, fmt.Errorf("provider denied authorization: %s", errParam))
		return
	}

	token, err := g.oauthConfig.Exchange(g.ExchangeContext(r.Context()), r.FormValue("code"))
	if err != nil {
		g.fail(w, r, fmt.Errorf("code exchange: %w", err))
		return
	}
	claims, err := g.fetchClaims(r, token)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	g.HandleClaims(claims, token, w, r)
}

// fetchClaims reads the authenticated GitHub user. The numeric id is kept as
// a json.Number.
func (g *GithubOAuth2) fetchClaims(r *http.Request, token *oauth2.Token) (authcore.ProviderClaims, error) {
	var claims authcore.ProviderClaims
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return claims, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	response, err := g.getHTTPClient().Do(req)
	if err != nil {
		return claims, fmt.Errorf("failed getting user info from github: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return claims, fmt.Errorf("github user info: status %d: %s", response.StatusCode, body)
	}

	dec := json.NewDecoder(response.Body)
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return claims, fmt.Errorf("failed to parse user info: %w", err)
	}
	if claims.ID == "" {
		return claims, errors.New("github user info has no id")
	}
	claims.Provider = ProviderGithub
	return claims, nil
}
