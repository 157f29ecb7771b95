package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/pkg/api"
)

var (
	ErrStartFlow = errors.New("failed to start flow")
	ErrGetFlow   = errors.New("failed to get flow")
)

func (s *Server) listFlows(c *gin.Context) {
	var flows []*api.Flow
	if c.Query("status") == string(api.FlowRunning) {
		flows = s.tracker.ListActiveFlows()
	} else {
		flows = s.tracker.ListFlows()
	}

	digests := make([]*api.FlowDigest, len(flows))
	for i, flow := range flows {
		digests[i] = flow.Digest()
	}
	c.JSON(http.StatusOK, api.FlowsListResponse{
		Flows: digests,
		Count: len(digests),
	})
}

func (s *Server) startFlow(c *gin.Context) {
	var req api.CreateFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.tracker.StartFlow(c.Request.Context(), &req)
	if err == nil {
		c.JSON(http.StatusCreated, api.FlowStartedResponse{
			Message: "Flow started",
			FlowID:  flow.ID,
		})
		return
	}

	if errors.Is(err, store.ErrDuplicateFlow) {
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusConflict,
		})
		return
	}
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrStartFlow, err),
		Status: http.StatusBadRequest,
	})
}

func (s *Server) getFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))

	flow, err := s.tracker.GetFlow(flowID)
	if err == nil {
		c.JSON(http.StatusOK, flow)
		return
	}

	if errors.Is(err, store.ErrFlowNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrGetFlow, err),
		Status: http.StatusInternalServerError,
	})
}

func (s *Server) patchCurrentStep(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))

	var req api.StepPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.tracker.SetCurrentStepStatus(
		c.Request.Context(), flowID, &req,
	)
	s.respondFlow(c, flow, err)
}

func (s *Server) advanceFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))
	flow, err := s.tracker.AdvanceFlowStep(c.Request.Context(), flowID)
	s.respondFlow(c, flow, err)
}

func (s *Server) failFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))

	var req api.FailFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	flow, err := s.tracker.FailFlow(c.Request.Context(), flowID, req.Error)
	s.respondFlow(c, flow, err)
}

func (s *Server) cancelFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))
	flow, err := s.tracker.CancelFlow(c.Request.Context(), flowID)
	s.respondFlow(c, flow, err)
}

func (s *Server) removeFlow(c *gin.Context) {
	flowID := api.FlowID(c.Param("flowID"))

	err := s.tracker.RemoveFlow(c.Request.Context(), flowID)
	if err == nil {
		c.JSON(http.StatusOK, api.MessageResponse{
			Message: fmt.Sprintf("Flow removed: %s", flowID),
		})
		return
	}
	s.respondError(c, err)
}

// respondFlow maps a tracker result onto a JSON response: the updated flow
// on success, a status keyed to the error sentinel otherwise
func (s *Server) respondFlow(c *gin.Context, flow *api.Flow, err error) {
	if err == nil {
		c.JSON(http.StatusOK, flow)
		return
	}
	s.respondError(c, err)
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrFlowNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
	case errors.Is(err, engine.ErrInvalidState),
		errors.Is(err, engine.ErrFlowStillLive):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusConflict,
		})
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
	}
}
