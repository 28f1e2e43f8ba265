package handlers

// CreatedResponse is the response for create operations
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// GatesResponse is the response for gate assignment
type GatesResponse struct {
	HeatsAssigned int `json:"heats_assigned"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status string `json:"status"`
}

// BaseURLResponse is the response for the base URL setting
type BaseURLResponse struct {
	BaseURL string `json:"base_url"`
}
