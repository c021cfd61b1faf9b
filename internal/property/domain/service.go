package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// LookupService is the collaborator contract the billing engine consumes:
// reference lookups that fail with a typed not-found error when missing.
type LookupService interface {
	GetProperty(ctx context.Context, id snowflake.ID) (*Property, error)
	GetResident(ctx context.Context, id snowflake.ID) (*Resident, error)
	GetService(ctx context.Context, id snowflake.ID) (*Service, error)
}
