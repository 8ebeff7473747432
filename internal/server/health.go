package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/atelier"
	"github.com/kode4food/atelier/pkg/api"
)

const statusOK = "ok"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: atelier.Name,
		Version: atelier.Version,
		Status:  statusOK,
	})
}
