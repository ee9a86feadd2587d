package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/infrastructure/memory"
	"github.com/oksasatya/user-account-service/internal/interface/middleware"
	"github.com/oksasatya/user-account-service/pkg/helpers"
	"github.com/oksasatya/user-account-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type plainHasher struct{}

func (plainHasher) Hash(_ context.Context, pw string) (string, error) { return "plain:" + pw, nil }
func (plainHasher) Compare(_ context.Context, pw, hash string) (bool, error) {
	return hash == "plain:"+pw, nil
}

type testServer struct {
	engine *gin.Engine
	repo   *memory.UserRepository
	jwt    *helpers.JWTManager
	admin  repository.UserRecord
	user   repository.UserRecord
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := memory.NewUserRepository()
	s := &testServer{
		repo:  repo,
		jwt:   helpers.NewJWTManager("secret", time.Hour),
		admin: repository.UserRecord{ID: uuid.New(), Email: "a@x.com", State: "active", Status: "admin", PasswordHash: "plain:admin-pass", Version: 1},
		user:  repository.UserRecord{ID: uuid.New(), Email: "b@x.com", State: "active", Status: "user", PasswordHash: "plain:user-pass", Version: 1},
	}
	require.NoError(t, repo.Save(context.Background(), s.admin))
	require.NoError(t, repo.Save(context.Background(), s.user))

	emails := validation.NewEmailValidator()
	passwords := validation.NewPasswordPolicy(validation.LengthRule(8, 72))
	users := NewUserHandler(
		application.NewRegisterUser(repo, emails, passwords, plainHasher{}, nil, nil),
		application.NewGetUser(repo),
		application.NewChangeUser(repo, emails, passwords, plainHasher{}, nil, nil),
		nil,
	)
	auth := NewAuthHandler(application.NewAuthenticate(repo, plainHasher{}, nil), s.jwt, nil, "localhost", false)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.POST("/auth/login", auth.Login)
	api.POST("/users", users.CreateUser)
	protected := api.Group("/", middleware.JWTAuth(s.jwt))
	protected.GET("/users/:id", users.GetUser)
	protected.PATCH("/users/:id", users.ChangeUser)
	s.engine = r
	return s
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, as uuid.UUID, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != uuid.Nil {
		token, _, err := s.jwt.GenerateAccessToken(as.String())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeUser(t *testing.T, env envelope) userResponse {
	t.Helper()
	var u userResponse
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NotFound("x"), http.StatusNotFound},
		{apperr.InvalidData("x"), http.StatusBadRequest},
		{apperr.NotActive("x"), http.StatusUnprocessableEntity},
		{apperr.NotAllowed("x"), http.StatusForbidden},
		{apperr.Conflict("x"), http.StatusConflict},
		{apperr.Internal("x", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestChangeUserEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPatch, "/api/users/"+s.user.ID.String(), s.admin.ID, map[string]any{"email": "new@x.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)

	got := decodeUser(t, env)
	assert.Equal(t, "new@x.com", got.Email)
	assert.Equal(t, uint64(2), got.Version)
	assert.NotContains(t, string(env.Data), "plain:")
}

func TestChangeUserEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		as     func(s *testServer) uuid.UUID
		target func(s *testServer) string
		body   map[string]any
		want   int
		kind   string
	}{
		{"freeze and promote", asAdmin, targetUser, map[string]any{"state": "frozen", "status": "admin"}, http.StatusUnprocessableEntity, "not_active"},
		{"not an admin", asUser, targetAdmin, map[string]any{"status": "user"}, http.StatusForbidden, "not_allowed"},
		{"self edit by plain user", asUser, targetUser, map[string]any{"email": "me@x.com"}, http.StatusForbidden, "not_allowed"},
		{"plain user with unknown state", asUser, targetUser, map[string]any{"state": "banned"}, http.StatusForbidden, "not_allowed"},
		{"plain user with malformed email", asUser, targetAdmin, map[string]any{"email": "not-an-email"}, http.StatusForbidden, "not_allowed"},
		{"initiator no longer stored", asStranger, targetUser, map[string]any{"status": "root"}, http.StatusNotFound, "not_found"},
		{"unknown state", asAdmin, targetUser, map[string]any{"state": "banned"}, http.StatusBadRequest, "invalid_data"},
		{"malformed email", asAdmin, targetUser, map[string]any{"email": "not-an-email"}, http.StatusBadRequest, "invalid_data"},
		{"unknown target", asAdmin, func(*testServer) string { return uuid.NewString() }, map[string]any{"state": "frozen"}, http.StatusNotFound, "not_found"},
		{"same email", asAdmin, targetUser, map[string]any{"email": "b@x.com"}, http.StatusBadRequest, "invalid_data"},
		{"short password", asAdmin, targetUser, map[string]any{"password": "short"}, http.StatusBadRequest, "invalid_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w, env := s.do(t, http.MethodPatch, "/api/users/"+tt.target(s), tt.as(s), tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.JSONEq(t, `{"kind":"`+tt.kind+`"}`, string(env.Error))

			stored, err := s.repo.FindByID(context.Background(), s.user.ID)
			require.NoError(t, err)
			assert.Equal(t, s.user, stored)
		})
	}
}

func asAdmin(s *testServer) uuid.UUID  { return s.admin.ID }
func asUser(s *testServer) uuid.UUID   { return s.user.ID }
func asStranger(*testServer) uuid.UUID { return uuid.New() }
func targetUser(s *testServer) string  { return s.user.ID.String() }
func targetAdmin(s *testServer) string { return s.admin.ID.String() }

func TestChangeUserEndpointBinding(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPatch, "/api/users/"+s.user.ID.String(), s.admin.ID, map[string]any{"state": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/api/users/not-a-uuid", s.admin.ID, map[string]any{"state": "frozen"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/api/users/"+s.user.ID.String(), uuid.Nil, map[string]any{"state": "frozen"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterLoginAndGet(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/users", uuid.Nil, map[string]any{"email": "c@x.com", "password": "long-enough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeUser(t, env)
	assert.Equal(t, "active", created.State)
	assert.Equal(t, "user", created.Status)
	assert.Equal(t, uint64(1), created.Version)

	w, _ = s.do(t, http.MethodPost, "/api/users", uuid.Nil, map[string]any{"email": "c@x.com", "password": "long-enough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", uuid.Nil, map[string]any{"email": "c@x.com", "password": "long-enough"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	claims, err := s.jwt.ParseAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Contains(t, w.Header().Get("Set-Cookie"), helpers.AccessTokenCookie+"=")

	id := uuid.MustParse(created.ID)
	w, env = s.do(t, http.MethodGet, "/api/users/"+created.ID, id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decodeUser(t, env))

	w, _ = s.do(t, http.MethodGet, "/api/users/"+s.admin.ID.String(), id, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/login", uuid.Nil, map[string]any{"email": "b@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", uuid.Nil, map[string]any{"email": "nobody@x.com", "password": "user-pass"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", uuid.Nil, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	frozen := s.user
	frozen.State = "frozen"
	frozen.Version = 2
	require.NoError(t, s.repo.Save(context.Background(), frozen))
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", uuid.Nil, map[string]any{"email": "b@x.com", "password": "user-pass"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthz(t *testing.T) {
	r := gin.New()
	down := errors.New("down")
	r.GET("/ok", NewHealthHandler(map[string]HealthCheck{"storage": func(context.Context) error { return nil }}).Healthz)
	r.GET("/down", NewHealthHandler(map[string]HealthCheck{"storage": func(context.Context) error { return down }}).Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"up"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"down"`)
}
