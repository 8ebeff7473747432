package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/schema"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/log"
)

var ErrInvalidJSON = errors.New("invalid JSON")

func (s *Server) listFlows(c *gin.Context) {
	flows := s.executor.Registry().List()
	c.JSON(http.StatusOK, api.FlowsListResponse{
		Flows: flows,
		Count: len(flows),
	})
}

func (s *Server) getFlow(c *gin.Context) {
	name := api.Name(c.Param("name"))
	def, err := s.executor.Registry().Get(name)
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *Server) runFlow(c *gin.Context) {
	name := api.Name(c.Param("name"))

	data, err := c.GetRawData()
	if err != nil {
		errorResponse(c, http.StatusBadRequest,
			fmt.Sprintf("%s: %v", ErrInvalidJSON, err))
		return
	}

	input := api.Args{}
	if len(data) > 0 {
		input, err = schema.ParseObject(data)
		if err != nil {
			errorResponse(c, http.StatusBadRequest,
				fmt.Sprintf("%s: %v", ErrInvalidJSON, err))
			return
		}
	}

	out, err := s.executor.Run(c.Request.Context(), name, input)
	if err != nil {
		s.flowError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, api.FlowResponse{
		Flow:   name,
		Output: out,
	})
}

func (s *Server) flowError(c *gin.Context, name api.Name, err error) {
	if errors.Is(err, flow.ErrFlowNotFound) {
		errorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	status := http.StatusBadGateway
	res := api.ErrorResponse{Error: err.Error()}
	if fe, ok := api.AsFlowError(err); ok {
		if fe.Kind == api.KindInputValidation {
			status = http.StatusBadRequest
		}
		res.Kind = fe.Kind
		res.Flow = fe.Flow
		res.Stage = fe.Stage
	}
	res.Status = status

	slog.Warn("Flow request failed",
		log.Flow(name),
		slog.Int("status_code", status),
		log.Error(err))
	c.JSON(status, res)
}
