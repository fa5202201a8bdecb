package handlers

import (
	"net/http"

	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

var statusByKind = map[services.Kind]int{
	services.KindUnauthenticated: http.StatusUnauthorized,
	services.KindNotFound:        http.StatusNotFound,
	services.KindDuplicateTitle:  http.StatusBadRequest,
	services.KindConflict:        http.StatusConflict,
	services.KindInvalidArgument: http.StatusBadRequest,
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// respondError writes a services.Error as its status and body. Anything else
// is logged and reported as a bare internal error.
func respondError(c *gin.Context, err error) {
	if e, ok := services.AsError(err); ok {
		status, known := statusByKind[e.Kind]
		if known {
			c.JSON(status, ErrorResponse{Error: string(e.Kind), Message: e.Message, Field: e.Field})
			return
		}
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("request failed")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "internal server error",
	})
}

func respondBadRequest(c *gin.Context, field string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(services.KindInvalidArgument),
		Message: "invalid request body: " + err.Error(),
		Field:   field,
	})
}

// principal reads the authenticated user or answers 401.
func principal(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.Principal(c)
	if !ok {
		respondError(c, services.Unauthenticated("authentication required"))
	}
	return id, ok
}
