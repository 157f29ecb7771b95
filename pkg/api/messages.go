package api

import "time"

type (
	// CreateFlowRequest contains parameters for starting a new flow
	CreateFlowRequest struct {
		Context Context     `json:"context,omitempty"`
		Type    FlowType    `json:"type"`
		Steps   []*StepSpec `json:"steps"`
	}

	// FlowStartedResponse is returned when a flow start succeeds
	FlowStartedResponse struct {
		Message string `json:"message"`
		FlowID  FlowID `json:"flow_id"`
	}

	// StepPatchRequest is a caller-driven transition of a flow's active
	// step, used when the caller has just obtained a transaction hash or a
	// user signature
	StepPatchRequest struct {
		Status StepStatus `json:"status"`
		TxHash string     `json:"tx_hash,omitempty"`
	}

	// FailFlowRequest carries the caller's reason for a forced failure
	FailFlowRequest struct {
		Error string `json:"error"`
	}

	// FlowDigest provides summary information about a flow
	FlowDigest struct {
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
		ID          FlowID     `json:"id"`
		Type        FlowType   `json:"type"`
		Status      FlowStatus `json:"status"`
		Error       string     `json:"error,omitempty"`
		CurrentStep int        `json:"current_step"`
		StepCount   int        `json:"step_count"`
	}

	// FlowsListResponse contains a list of flow summaries
	FlowsListResponse struct {
		Flows []*FlowDigest `json:"flows"`
		Count int           `json:"count"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}
)
