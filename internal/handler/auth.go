package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"hrops/internal/auth"
	"hrops/pkg/clientip"
	"hrops/pkg/errors"
	"hrops/pkg/logger"
	"hrops/pkg/validator"
)

// LoginService is the slice of the auth service the handler consumes.
type LoginService interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenResponse, error)
	LoginWithOAuth(ctx context.Context, verifier auth.OAuthVerifier, code string, dev auth.DeviceContext) (*auth.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string, dev auth.DeviceContext) (*auth.TokenResponse, error)
}

// AuthHandler handles login, logout, and token refresh.
type AuthHandler struct {
	service   LoginService
	oauth     auth.OAuthVerifier
	validator *validator.Validator
	logger    logger.Logger
}

func NewAuthHandler(service LoginService, oauth auth.OAuthVerifier, val *validator.Validator, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		oauth:     oauth,
		validator: val,
		logger:    log,
	}
}

// Login authenticates an employee. The device identity rides along in
// the body (or the X-Device-Fingerprint header) and decides whether the
// session survives the device gate.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Device.DeviceID == "" {
		req.Device.DeviceID = r.Header.Get("X-Device-Fingerprint")
	}
	req.Device.IPAddress = clientip.FromRequest(r)
	req.Device.UserAgent = r.UserAgent()

	response, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// respondLoginError maps gate outcomes onto status codes. Device gate
// messages are part of the UI contract and pass through verbatim.
func (h *AuthHandler) respondLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsDeviceBlocked(err):
		respondError(w, http.StatusForbidden, err.Error())
	case err == errors.ErrInvalidCredentials,
		err == errors.ErrUserInactive,
		err == errors.ErrInvalidTOTPCode:
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error("Login failed", logger.Fields{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Login failed")
	}
}

const oauthStateCookie = "oauth_state"

// GoogleLogin starts the Google sign-in flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		respondError(w, http.StatusNotImplemented, "OAuth login is not configured")
		return
	}

	state, err := randomState()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start OAuth flow")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.oauth.AuthCodeURL(state),
	})
}

// GoogleCallback completes the Google sign-in flow and runs the same
// device gate as password login. The SPA forwards the device identity
// as query parameters when it lands on the callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		respondError(w, http.StatusNotImplemented, "OAuth login is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		respondError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	dev := auth.DeviceContext{
		DeviceID:   r.URL.Query().Get("device_id"),
		DeviceInfo: r.URL.Query().Get("device_info"),
		Browser:    r.URL.Query().Get("browser"),
		OS:         r.URL.Query().Get("os"),
		DeviceType: r.URL.Query().Get("device_type"),
		Model:      r.URL.Query().Get("model"),
		Location:   r.URL.Query().Get("location"),
		IPAddress:  clientip.FromRequest(r),
		UserAgent:  r.UserAgent(),
	}
	if dev.DeviceID == "" {
		dev.DeviceID = r.Header.Get("X-Device-Fingerprint")
	}

	response, err := h.service.LoginWithOAuth(r.Context(), h.oauth, code, dev)
	if err != nil {
		h.respondLoginError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates the caller's session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dev := auth.DeviceContext{
		DeviceID:  r.Header.Get("X-Device-Fingerprint"),
		IPAddress: clientip.FromRequest(r),
		UserAgent: r.UserAgent(),
	}

	response, err := h.service.Refresh(r.Context(), req.RefreshToken, dev)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Logout revokes the caller's session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
