package authcore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// API serves the JSON endpoints in front of the orchestrator.
type API struct {
	Auth *Orchestrator

	// Where the provider callback sends the browser after a login attempt
	LoginSuccessURL string
	AuthFailureURL  string

	// ReturnURL, when set, yields the page the browser was on before login.
	// Only same-origin paths are honored; anything else falls back to
	// LoginSuccessURL.
	ReturnURL func(w http.ResponseWriter, r *http.Request) string

	Logger *slog.Logger
}

func (a *API) EnsureDefaults() *API {
	if a.LoginSuccessURL == "" {
		a.LoginSuccessURL = "/"
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	return a
}

// RegisterRoutes mounts the endpoints under prefix (usually "/api").
func (a *API) RegisterRoutes(r *mux.Router, prefix string) {
	a.EnsureDefaults()
	s := r.PathPrefix(strings.TrimSuffix(prefix, "/")).Subrouter()
	s.HandleFunc("/whoami", a.HandleWhoAmI).Methods(http.MethodGet)
	s.HandleFunc("/user", a.HandleWhoAmI).Methods(http.MethodGet)
	s.HandleFunc("/login", a.HandleLogin).Methods(http.MethodPost)
	s.HandleFunc("/register", a.HandleRegister).Methods(http.MethodPost)
	s.HandleFunc("/logout", a.HandleLogout).Methods(http.MethodPost)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /login
func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := parseCredentials(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		a.writeError(w, invalidCredentials(NewAuthError(ErrCodeMissingField, "Email and password are required", "")))
		return
	}

	user, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// HandleRegister handles POST /register
func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := parseCredentials(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if authErr := ValidateCredentials(req.Email, req.Password); authErr != nil {
		a.writeError(w, authErr)
		return
	}

	user, err := a.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

// HandleWhoAmI handles GET /whoami. Anonymous callers get the marker object
// with a 200 so clients can probe without triggering errors.
func (a *API) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	res := a.Auth.WhoAmI(r.Context())
	if !res.Authenticated {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"error":         "Not authenticated",
		})
		return
	}
	writeJSON(w, http.StatusOK, res.User)
}

// HandleLogout handles POST /logout
func (a *API) HandleLogout(w http.ResponseWriter, r *http.Request) {
	msg := a.Auth.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

// HandleProviderUser is the claims handler given to the OAuth collaborator.
// It provisions the user, establishes the session and sends the browser on.
func (a *API) HandleProviderUser(claims ProviderClaims, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	dest := a.LoginSuccessURL
	if a.ReturnURL != nil {
		if u := a.ReturnURL(w, r); IsLocalRedirect(u) {
			dest = u
		}
	}

	user, err := a.Auth.HandleProviderLogin(r.Context(), claims)
	if err != nil {
		a.Logger.Warn("provider login failed", "provider", claims.Provider, "error", err)
		if a.AuthFailureURL != "" {
			http.Redirect(w, r, a.AuthFailureURL, http.StatusFound)
			return
		}
		a.writeError(w, err)
		return
	}
	a.Logger.Info("provider login succeeded", "provider", claims.Provider, "email", user.Email)
	http.Redirect(w, r, dest, http.StatusFound)
}

// IsLocalRedirect reports whether target is a path on this origin, so that
// redirecting to it cannot send the browser elsewhere.
func IsLocalRedirect(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func parseCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, NewAuthError(ErrCodeInvalidRequest, "Invalid request body", "")
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, NewAuthError(ErrCodeInvalidRequest, "Invalid form data", "")
	}
	req.Email = r.FormValue("email")
	req.Password = r.FormValue("password")
	return req, nil
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		a.Logger.Error("unexpected auth failure", "error", err)
		authErr = &AuthError{Code: ErrCodeInternal, Message: "Internal error", Err: err}
	}
	writeJSON(w, statusFor(authErr.Code), map[string]any{
		"error": authErr.Message,
		"code":  authErr.Code,
		"field": authErr.Field,
	})
}

func statusFor(code string) int {
	switch code {
	case ErrCodeInvalidCredentials, ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case ErrCodeEmailExists:
		return http.StatusConflict
	case ErrCodeMissingField, ErrCodeInvalidEmail, ErrCodeWeakPassword, ErrCodeInvalidRequest, ErrCodeInvalidClaims:
		return http.StatusBadRequest
	case ErrCodeDirectoryWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
