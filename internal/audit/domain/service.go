package domain

import "context"

// Service writes audit log entries. Failures must never propagate into the
// financial write path; implementations log and swallow errors.
type Service interface {
	AuditLog(ctx context.Context, actor Actor, action, targetType, targetID string, metadata map[string]any)
}
