package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenlabs/chainflow"
	"github.com/lumenlabs/chainflow/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: chainflow.Name,
		Version: chainflow.Version,
		Status:  "healthy",
	})
}
