package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "socialhub-server-go/internal/platform/errors"
)

// APIResponse is the envelope for every non-conversation endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondErr maps a classified error onto a status code and records it on the context.
func RespondErr(c *gin.Context, err error) {
	_ = c.Error(err)
	RespondError(c, StatusForError(err), err.Error(), nil)
}

// StatusForError picks the HTTP status for an error kind.
func StatusForError(err error) int {
	switch platformerrors.KindOf(err) {
	case platformerrors.KindDomain, platformerrors.KindSerialization:
		return http.StatusBadRequest
	case platformerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case platformerrors.KindContext:
		return http.StatusRequestTimeout
	case platformerrors.KindProvider, platformerrors.KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
