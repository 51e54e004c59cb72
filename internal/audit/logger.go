package audit

import (
	"context"

	"github.com/google/uuid"
)

// Logger defines the interface for auditing operations
type Logger interface {
	// LogPermissionCheck logs a permission decision for a user
	LogPermissionCheck(
		ctx context.Context,
		userID uuid.UUID,
		permission string,
		allowed bool,
	) error

	// LogMutation logs a create, update or delete of a tenant record
	LogMutation(
		ctx context.Context,
		action string,
		resource string,
		resourceID string,
		details map[string]interface{},
	) error
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

// LogPermissionCheck implements Logger.LogPermissionCheck
func (l *NoOpLogger) LogPermissionCheck(
	ctx context.Context,
	userID uuid.UUID,
	permission string,
	allowed bool,
) error {
	return nil
}

// LogMutation implements Logger.LogMutation
func (l *NoOpLogger) LogMutation(
	ctx context.Context,
	action string,
	resource string,
	resourceID string,
	details map[string]interface{},
) error {
	return nil
}
