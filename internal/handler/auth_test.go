package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartab/internal/handler"
	"bartab/internal/model"
	"bartab/internal/service"
)

const testSecret = "test-secret"

type fakeAuthService struct {
	register     func(ctx context.Context, login, password string) (*model.User, error)
	createStaff  func(ctx context.Context, login, password string, role model.Role, barID string) (*model.User, error)
	authenticate func(ctx context.Context, login, password string) (*model.User, error)
}

func (f *fakeAuthService) Register(ctx context.Context, login, password string) (*model.User, error) {
	return f.register(ctx, login, password)
}

func (f *fakeAuthService) CreateStaff(ctx context.Context, login, password string, role model.Role, barID string) (*model.User, error) {
	return f.createStaff(ctx, login, password, role, barID)
}

func (f *fakeAuthService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	return f.authenticate(ctx, login, password)
}

func parseClaims(t *testing.T, rec *httptest.ResponseRecorder) jwt.MapClaims {
	t.Helper()

	auth := rec.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "), "Authorization header %q", auth)

	token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	userID := uuid.NewString()
	svc := &fakeAuthService{
		register: func(_ context.Context, login, password string) (*model.User, error) {
			assert.Equal(t, "resu", login)
			assert.Equal(t, "hunter2", password)
			return &model.User{ID: userID, Login: login, Role: model.RoleCustomer, CreatedAt: time.Now()}, nil
		},
	}

	rec := doRequest(t, handler.RegisterHandler(svc, testSecret), nil,
		http.MethodPost, "/api/user/register", `{"login":"resu","password":"hunter2"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	claims := parseClaims(t, rec)
	assert.Equal(t, userID, claims["user_id"])
	assert.Equal(t, "customer", claims["role"])
	assert.NotContains(t, claims, "bar_id")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "resu", body["login"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := &fakeAuthService{
		register: func(context.Context, string, string) (*model.User, error) {
			t.Fatal("register must not be reached on invalid input")
			return nil, nil
		},
	}
	h := handler.RegisterHandler(svc, testSecret)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"garbage body", "{", "invalid_json"},
		{"missing password", `{"login":"resu"}`, "missing_credentials"},
		{"missing login", `{"password":"hunter2"}`, "missing_credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, nil, http.MethodPost, "/api/user/register", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestRegisterDuplicateLogin(t *testing.T) {
	svc := &fakeAuthService{
		register: func(context.Context, string, string) (*model.User, error) {
			return nil, service.ErrLoginTaken
		},
	}

	rec := doRequest(t, handler.RegisterHandler(svc, testSecret), nil,
		http.MethodPost, "/api/user/register", `{"login":"resu","password":"hunter2"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "login_taken", errorCode(t, rec))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := &fakeAuthService{
		authenticate: func(context.Context, string, string) (*model.User, error) {
			return nil, service.ErrInvalidCredentials
		},
	}

	rec := doRequest(t, handler.LoginHandler(svc, testSecret), nil,
		http.MethodPost, "/api/user/login", `{"login":"resu","password":"wrong"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))
	assert.Empty(t, rec.Header().Get("Authorization"))
}

func TestLoginStaffTokenCarriesBar(t *testing.T) {
	barID := uuid.NewString()
	svc := &fakeAuthService{
		authenticate: func(_ context.Context, login, _ string) (*model.User, error) {
			return &model.User{ID: uuid.NewString(), Login: login, Role: model.RoleBartender, BarID: &barID}, nil
		},
	}

	rec := doRequest(t, handler.LoginHandler(svc, testSecret), nil,
		http.MethodPost, "/api/user/login", `{"login":"staff","password":"hunter2"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	claims := parseClaims(t, rec)
	assert.Equal(t, "bartender", claims["role"])
	assert.Equal(t, barID, claims["bar_id"])
}
