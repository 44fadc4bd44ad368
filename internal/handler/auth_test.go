package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hrops/internal/auth"
	"hrops/internal/domain"
	"hrops/pkg/errors"
	"hrops/pkg/logger"
	"hrops/pkg/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoginService struct {
	mock.Mock
}

func (m *MockLoginService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockLoginService) LoginWithOAuth(ctx context.Context, verifier auth.OAuthVerifier, code string, dev auth.DeviceContext) (*auth.TokenResponse, error) {
	args := m.Called(ctx, verifier, code, dev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func (m *MockLoginService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockLoginService) Refresh(ctx context.Context, refreshToken string, dev auth.DeviceContext) (*auth.TokenResponse, error) {
	args := m.Called(ctx, refreshToken, dev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenResponse), args.Error(1)
}

func newAuthHandler(svc LoginService) *AuthHandler {
	return NewAuthHandler(svc, nil, validator.New(), logger.NewNop())
}

func postLogin(t *testing.T, h *AuthHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestLoginHandler_Success(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)

	resp := &auth.TokenResponse{
		AccessToken:  "at",
		RefreshToken: "rt",
		User:         &domain.User{ID: uuid.New(), Email: "jordan@example.com"},
	}
	svc.On("Login", mock.Anything, mock.MatchedBy(func(req *auth.LoginRequest) bool {
		return req.Email == "jordan@example.com" &&
			req.Device.DeviceID == "fp-aabbccdd0011" &&
			req.Device.IPAddress != ""
	})).Return(resp, nil)

	rec := postLogin(t, h, `{
		"email": "jordan@example.com",
		"password": "secret",
		"device": {"device_id": "fp-aabbccdd0011", "device_info": "Chrome on macOS"}
	}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "at", body.AccessToken)
}

func TestLoginHandler_FingerprintHeaderFallback(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)

	svc.On("Login", mock.Anything, mock.MatchedBy(func(req *auth.LoginRequest) bool {
		return req.Device.DeviceID == "fp-from-header-1"
	})).Return(&auth.TokenResponse{AccessToken: "at"}, nil)

	rec := postLogin(t, h, `{"email": "jordan@example.com", "password": "secret"}`,
		map[string]string{"X-Device-Fingerprint": "fp-from-header-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestLoginHandler_DeviceGateMessagesPassThrough(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "new device",
			err:  errors.ErrDeviceNew,
			want: "New device detected. Your device has been registered and is pending approval. Please wait for an administrator to approve your device before logging in.",
		},
		{
			name: "pending device",
			err:  errors.ErrDevicePending,
			want: "Your device is pending approval. Please wait for an administrator to approve your device before logging in.",
		},
		{
			name: "rejected device",
			err:  errors.ErrDeviceRejected,
			want: "This device has been rejected. Please contact your administrator.",
		},
		{
			name: "device limit",
			err:  &errors.DeviceLimitError{Limit: 3},
			want: "Device limit reached (3). Please ask your admin to remove an old device.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLoginService)
			h := newAuthHandler(svc)
			svc.On("Login", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := postLogin(t, h, `{
				"email": "jordan@example.com",
				"password": "secret",
				"device": {"device_id": "fp-aabbccdd0011", "device_info": "Chrome on macOS"}
			}`, nil)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, errors.ErrInvalidCredentials)

	rec := postLogin(t, h, `{"email": "jordan@example.com", "password": "wrong"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_InternalErrorHidesDetail(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rec := postLogin(t, h, `{"email": "jordan@example.com", "password": "secret"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Login failed", errorMessage(t, rec))
}

func TestLoginHandler_EmptyBody(t *testing.T) {
	h := newAuthHandler(new(MockLoginService))
	rec := postLogin(t, h, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", errorMessage(t, rec))
}

func TestLoginHandler_UnknownFieldRejected(t *testing.T) {
	h := newAuthHandler(new(MockLoginService))
	rec := postLogin(t, h, `{"email": "a@b.c", "password": "x", "bogus": true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingEmail(t *testing.T) {
	h := newAuthHandler(new(MockLoginService))
	rec := postLogin(t, h, `{"password": "secret"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_BadFingerprintRejected(t *testing.T) {
	h := newAuthHandler(new(MockLoginService))
	rec := postLogin(t, h, `{
		"email": "jordan@example.com",
		"password": "secret",
		"device": {"device_id": "no spaces allowed!", "device_info": "x"}
	}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshHandler(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)

	svc.On("Refresh", mock.Anything, "rt-1", mock.MatchedBy(func(dev auth.DeviceContext) bool {
		return dev.DeviceID == "fp-aabbccdd0011"
	})).Return(&auth.TokenResponse{AccessToken: "at2", RefreshToken: "rt-2"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewBufferString(`{"refresh_token":"rt-1"}`))
	req.Header.Set("X-Device-Fingerprint", "fp-aabbccdd0011")
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshHandler_Rejected(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)
	svc.On("Refresh", mock.Anything, "rt-x", mock.Anything).Return(nil, errors.ErrSessionRevoked)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewBufferString(`{"refresh_token":"rt-x"}`))
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", errorMessage(t, rec))
}

func TestLogoutHandler(t *testing.T) {
	svc := new(MockLoginService)
	h := newAuthHandler(svc)
	svc.On("Logout", mock.Anything, "rt-1").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewBufferString(`{"refresh_token":"rt-1"}`))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	h := newAuthHandler(new(MockLoginService))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil)
	rec := httptest.NewRecorder()
	h.GoogleLogin(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
