package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/pkg/jwthelper"
)

func TestAuthenticator_VerifyJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const key = "signing-key"

	router := gin.New()
	router.GET("/me", NewAuthenticator(key).VerifyJWT(), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"user_id": ctx.GetUint(UserIDKey)})
	})

	token, err := jwthelper.GenerateToken([]byte(key), 3, "test")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{name: "header", path: "/me", header: "Bearer " + token, status: http.StatusOK},
		{name: "query", path: "/me?token=" + token, status: http.StatusOK},
		{name: "missing", path: "/me", status: http.StatusUnauthorized},
		{name: "garbage", path: "/me", header: "Bearer abc", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":3}`, rec.Body.String())
			}
		})
	}
}
