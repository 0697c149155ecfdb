package service

import "context"

// AppService defines the interface for general application operations
type AppService interface {
	// GetWelcomeMessage returns a welcome message
	GetWelcomeMessage(ctx context.Context) (map[string]interface{}, error)

	// HealthCheck reports the state of every backing dependency
	HealthCheck(ctx context.Context) (map[string]interface{}, bool)
}
