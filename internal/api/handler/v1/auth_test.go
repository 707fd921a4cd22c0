package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/config"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/pkg/jwthelper"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/service"
)

type stubAuthService struct{}

func (stubAuthService) Signup(_ context.Context, user domain.User) (domain.User, error) {
	if user.Email == "taken@example.com" {
		return domain.User{}, service.ErrUserEmailExists
	}
	user.ID = 9
	return user, nil
}

func (stubAuthService) Login(_ context.Context, email, password string) (domain.User, error) {
	if email != "alice@example.com" || password != "password1" {
		return domain.User{}, service.ErrWrongPassword
	}
	return testUser, nil
}

func TestAuthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const key = "signing-key"

	h := NewAuthHandler(&config.APIConfig{JWTSigningKey: key}, stubAuthService{})
	router := gin.New()
	router.POST("/auth/signup", h.HandleSignup)
	router.POST("/auth/login", h.HandleLogin)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/auth/signup", `{"email":"bob@example.com","name":"Bob","password":"password1","confirm_password":"password1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password1")

	rec = post("/auth/signup", `{"email":"taken@example.com","name":"Bob","password":"password1","confirm_password":"password1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/auth/signup", `{"email":"bob@example.com","name":"Bob","password":"short","confirm_password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/auth/login", `{"email":"alice@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post("/auth/login", `{"email":"alice@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var login response.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, testUser.ID, login.User.ID)

	claims, err := jwthelper.ParseToken([]byte(key), login.Token)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.UserID)
}
