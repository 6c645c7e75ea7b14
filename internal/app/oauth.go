package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/semmidev/custos/internal/adapter/storage"
	"github.com/semmidev/custos/internal/infrastructure/logger"
	"golang.org/x/oauth2"
)

// GoogleOAuthService mints a Drive refresh token for mirror targets that use
// an OAuth client secret instead of a service account.
type GoogleOAuthService struct {
	config *oauth2.Config
	logger *logger.Logger

	mu    sync.Mutex
	state string
}

func NewGoogleOAuthService(logger *logger.Logger, clientSecretPath string) (*GoogleOAuthService, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}

	cfg, err := storage.OAuthConfig(clientSecretPath)
	if err != nil {
		return nil, err
	}

	return &GoogleOAuthService{
		config: cfg,
		logger: logger,
	}, nil
}

func (s *GoogleOAuthService) GetConfig() *oauth2.Config {
	return s.config
}

// Register mounts the authorize and callback routes.
func (s *GoogleOAuthService) Register(r *mux.Router) {
	r.HandleFunc("/auth/google/drive", s.authorize).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", s.callback).Methods(http.MethodGet)
}

func (s *GoogleOAuthService) authorize(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	authURL := s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (s *GoogleOAuthService) callback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	expected := s.state
	s.state = ""
	s.mu.Unlock()

	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	token, err := s.config.Exchange(r.Context(), code)
	if err != nil {
		http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
		return
	}

	tokenJSON, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		http.Error(w, "failed to marshal token", http.StatusInternalServerError)
		return
	}

	refresh := token.RefreshToken
	if refresh == "" {
		fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access & re-authorize.")
		return
	}

	s.logger.Infof("Google Drive refresh token issued; set it as refresh_token on the gdrive target")
	fmt.Fprintf(w, "✅ Refresh Token:\n%s\n\nFull Token JSON:\n%s", refresh, tokenJSON)
}
