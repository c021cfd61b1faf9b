// Package domain contains the audit trail model and the resolved actor type.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType tags who performed an action. Callers resolve the actor upstream
// (auth is not this service's concern) and hand the engine a tagged value.
type ActorType string

const (
	ActorTypeAdmin    ActorType = "admin"
	ActorTypeResident ActorType = "resident"
	ActorTypeSystem   ActorType = "system"
)

// Actor is an already-resolved principal with a role tag.
type Actor struct {
	Type ActorType
	ID   string
}

func SystemActor() Actor {
	return Actor{Type: ActorTypeSystem, ID: "propera"}
}

// AuditLog is an append-only record of a financial or administrative action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorType  string            `gorm:"type:text;not null"`
	ActorID    string            `gorm:"type:text;not null"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   string            `gorm:"type:text;not null;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
