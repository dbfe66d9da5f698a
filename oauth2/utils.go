package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	authcore "github.com/gr-backend/authcore"
	"golang.org/x/oauth2"
)

const (
	stateCookieName       = "oauthstate"
	callbackURLCookieName = "oauthCallbackURL"
)

// HandleClaimsFunc receives the provider's typed user claims after a successful
// code exchange and writes the response.
type HandleClaimsFunc func(claims authcore.ProviderClaims, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("generating oauth state", "err", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})
}

// OauthRedirector sends the browser to the provider's consent page, remembering
// the state and an optional callbackURL in short lived cookies.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbackURL := r.URL.Query().Get("callbackURL"); authcore.IsLocalRedirect(callbackURL) {
			http.SetCookie(w, &http.Cookie{
				Name:     callbackURLCookieName,
				Value:    callbackURL,
				Path:     "/",
				MaxAge:   120,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		oauthState := generateStateOauthCookie(w)
		http.Redirect(w, r, oauthConfig.AuthCodeURL(oauthState), http.StatusFound)
	}
}

// PopCallbackURL returns the callbackURL remembered by the redirector and
// clears its cookie.
func PopCallbackURL(w http.ResponseWriter, r *http.Request) string {
	u := CallbackURL(r)
	if u != "" {
		http.SetCookie(w, &http.Cookie{Name: callbackURLCookieName, Path: "/", MaxAge: -1})
	}
	return u
}

// CallbackURL returns the callbackURL remembered by the redirector, if any.
func CallbackURL(r *http.Request) string {
	c, err := r.Cookie(callbackURLCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
