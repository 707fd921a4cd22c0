package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/pkg/jwthelper"
)

const UserIDKey = "userID"

var errMissingToken = errors.New("missing bearer token")

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
	}
}

// VerifyJWT accepts the token from the Authorization header, or from the
// "token" query parameter for websocket upgrades.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = ctx.Query("token")
		}
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			ctx.Abort()
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, token)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			ctx.Abort()
			return
		}

		ctx.Set(UserIDKey, claims.UserID)
		ctx.Next()
	}
}
