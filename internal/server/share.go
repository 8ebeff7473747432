package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/atelier/pkg/log"
)

const errShareNotFound = "share link not found"

func (s *Server) resolveShare(c *gin.Context) {
	if s.docs == nil {
		errorResponse(c, http.StatusNotFound, errShareNotFound)
		return
	}

	doc, err := s.docs.ResolveShare(c.Request.Context(), c.Param("token"))
	if err != nil {
		slog.Error("Share resolution failed", log.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		errorResponse(c, http.StatusNotFound, errShareNotFound)
		return
	}
	c.JSON(http.StatusOK, doc)
}
