package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// IngestionStats is returned by GET /v1/admin/stats.
type IngestionStats struct {
	RecordsIngested map[string]int64 `json:"recordsIngested"`
	IngestFailures  map[string]int64 `json:"ingestFailures"`
	StoreErrors     int64            `json:"storeErrors"`
	Period          string           `json:"period"`
}

// SuccessResponse wraps a successful message-only response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
