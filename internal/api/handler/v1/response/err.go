package response

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Err struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
	Code           string `json:"code,omitempty"`
}

func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error(e.StatusText,
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(e.Err))
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func newErr(status int, err error) *Err {
	e := &Err{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
	}
	if err != nil {
		e.ErrorText = err.Error()
	}

	return e
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, err)
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, err)
}

func ErrWrongCredentials(err error) *Err {
	e := newErr(http.StatusUnauthorized, err)
	e.ErrorText = "wrong email or password"

	return e
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, err)
}

func ErrNotFound(resource, key string, value interface{}) *Err {
	return newErr(http.StatusNotFound, fmt.Errorf("%s with %s %v not found", resource, key, value))
}

// ErrInternalServerError hides the cause from the client, it is only logged.
func ErrInternalServerError(err error) *Err {
	e := newErr(http.StatusInternalServerError, err)
	e.ErrorText = ""

	return e
}

// ErrCode renders a business error whose message is a stable client-facing code.
func ErrCode(status int, err error) *Err {
	e := newErr(status, err)
	e.Code = err.Error()

	return e
}
