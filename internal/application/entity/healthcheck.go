package entity

// HealthCheckResponse is the body of GET /health.
type HealthCheckResponse struct {
	Status  bool                    `json:"status" example:"true"`
	Message string                  `json:"message" example:"success"`
	Version string                  `json:"version" example:"0.1.0"`
	Checks  HealthCheckResponseData `json:"checks"`
}

type HealthCheckResponseData struct {
	Database HealthCheckItem `json:"database"`
	Kafka    HealthCheckItem `json:"kafka"`
}

type HealthCheckItem struct {
	Status  bool   `json:"status" example:"true"`
	Enabled bool   `json:"enabled" example:"true"`
	Type    string `json:"type" example:"postgresql"`
	Error   string `json:"error,omitempty" example:"Database connection failed"`
}

// Health is the service level view of the dependencies.
type Health struct {
	Database     bool
	Kafka        bool
	KafkaEnabled bool
}
