package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/identity"
	"github.com/linesmerrill/dharma-case-api/models"
)

// how long verified credentials and tokens stay cached
const tokenCacheTTL = time.Minute

// Auth logs portal users in and guards the case routes
type Auth struct {
	Directory *identity.Directory
	Issuer    *identity.Issuer

	login  auth.Authenticator
	bearer auth.Authenticator
}

// NewAuth sets up the go-guardian strategies. The caches stop when ctx is done.
func NewAuth(ctx context.Context, dir *identity.Directory, issuer *identity.Issuer) *Auth {
	a := &Auth{Directory: dir, Issuer: issuer}

	a.login = auth.New()
	a.login.EnableStrategy(basic.StrategyKey, basic.New(a.ValidateUser, store.NewFIFO(ctx, tokenCacheTTL)))

	a.bearer = auth.New()
	a.bearer.EnableStrategy(bearer.CachedStrategyKey, bearer.New(a.ValidateToken, store.NewFIFO(ctx, tokenCacheTTL)))
	return a
}

// Middleware requires a valid bearer token and stores the caller in the
// request context
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info, err := a.bearer.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL,
				"error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		actor := participantFromInfo(info)
		zap.S().Debugw("user authenticated", "userId", actor.ID, "role", actor.Role)
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// CreateToken exchanges HTTP basic credentials for the role in the path for a
// signed token
func (a *Auth) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, _, ok := r.BasicAuth(); !ok {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}

	role := models.Role(mux.Vars(r)["role"])
	info, err := a.login.Authenticate(r)
	if err == nil && participantFromInfo(info).Role != role {
		err = identity.ErrInvalidCredentials
	}
	if err != nil {
		zap.S().Warnw("login rejected", "role", role, "error", err)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user := participantFromInfo(info)
	token, err := a.Issuer.Issue(user)
	if err != nil {
		zap.S().Errorw("failed to issue token", "error", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	responseBody, err := json.Marshal(models.TokenResponse{Token: token, User: user})
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseBody)
}

// ValidateUser checks basic credentials against the account for the role in
// the request path
func (a *Auth) ValidateUser(ctx context.Context, r *http.Request, identifier, password string) (auth.Info, error) {
	role := models.Role(mux.Vars(r)["role"])
	p, err := a.Directory.Authenticate(role, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", role, err)
	}
	return infoFromParticipant(p), nil
}

// ValidateToken verifies a bearer token issued by CreateToken
func (a *Auth) ValidateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	p, err := a.Issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	return infoFromParticipant(p), nil
}

func infoFromParticipant(p models.CaseParticipant) auth.Info {
	return auth.NewDefaultUser(p.Name, p.ID, []string{string(p.Role)}, nil)
}

func participantFromInfo(info auth.Info) models.CaseParticipant {
	p := models.CaseParticipant{ID: info.ID(), Name: info.UserName()}
	if groups := info.Groups(); len(groups) > 0 {
		p.Role = models.Role(groups[0])
	}
	return p
}

// TokenFromQuery copies an access_token query parameter into the
// Authorization header for clients that cannot set headers, such as browser
// websockets
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("access_token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}
