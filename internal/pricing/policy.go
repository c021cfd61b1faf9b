// Package pricing decides who owes for a service and at what amount.
package pricing

import (
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/zap"
)

// eligibilityPolicy maps a relationship type to the bill types its residents
// can be charged for. The table is the single authority for eligibility; the
// default entry below is a deliberate, auditable policy, not a silent fallback.
var eligibilityPolicy = map[propertydomain.RelationshipType][]billdomain.BillType{
	propertydomain.RelationshipBuyer: {
		billdomain.BillTypeSecurity,
		billdomain.BillTypeCleaning,
		billdomain.BillTypeOther,
	},
	propertydomain.RelationshipCoBuyer: {
		billdomain.BillTypeSecurity,
		billdomain.BillTypeCleaning,
		billdomain.BillTypeOther,
	},
	propertydomain.RelationshipRenter: {
		billdomain.BillTypeElectricity,
		billdomain.BillTypeGas,
		billdomain.BillTypeWater,
	},
}

// defaultEligibility applies to unrecognized or absent relationship types:
// eligible for every bill type. Fail-open, and named so it shows up in review.
var defaultEligibility = billdomain.AllBillTypes

type Engine struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Engine {
	return &Engine{log: log.Named("pricing")}
}

// AllowedBillTypes returns the bill types a relationship may be charged for.
func (e *Engine) AllowedBillTypes(rel propertydomain.RelationshipType) []billdomain.BillType {
	if allowed, ok := eligibilityPolicy[rel]; ok {
		return allowed
	}
	return defaultEligibility
}

// EligibleRelationships filters a property's relationships down to those that
// owe for the given bill type. A resident attached through several
// relationships is returned once.
func (e *Engine) EligibleRelationships(relationships []propertydomain.ResidentProperty, billType billdomain.BillType) []propertydomain.ResidentProperty {
	var eligible []propertydomain.ResidentProperty
	seen := make(map[int64]struct{}, len(relationships))
	for _, rel := range relationships {
		if !e.allows(rel.RelationshipType, billType) {
			continue
		}
		if _, dup := seen[int64(rel.ResidentID)]; dup {
			continue
		}
		seen[int64(rel.ResidentID)] = struct{}{}
		eligible = append(eligible, rel)
	}
	return eligible
}

func (e *Engine) allows(rel propertydomain.RelationshipType, billType billdomain.BillType) bool {
	for _, allowed := range e.AllowedBillTypes(rel) {
		if allowed == billType {
			return true
		}
	}
	return false
}
