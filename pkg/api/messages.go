package api

type (
	// FlowResponse is returned when a flow execution succeeds
	FlowResponse struct {
		Output Args `json:"output"`
		Flow   Name `json:"flow"`
	}

	// FlowsListResponse contains the registered flow definitions
	FlowsListResponse struct {
		Flows []*FlowDefinition `json:"flows"`
		Count int               `json:"count"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// ErrorResponse contains error details for failed requests. Kind, Flow
	// and Stage are filled when the failure came from a flow execution
	ErrorResponse struct {
		Error  string    `json:"error"`
		Kind   ErrorKind `json:"kind,omitempty"`
		Flow   Name      `json:"flow,omitempty"`
		Stage  Stage     `json:"stage,omitempty"`
		Status int       `json:"status,omitempty"`
	}
)
