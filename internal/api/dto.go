package api

// HealthResponse — ответ /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ExportResponse — ответ POST /api/v1/export.
type ExportResponse struct {
	Path    string `json:"path"`
	Regions int    `json:"regions"`
}
