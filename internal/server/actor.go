package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
)

// requestActor resolves the acting identity from request headers. Calls
// without actor headers are attributed to the system actor; authentication
// proper lives at the gateway in front of this service.
func requestActor(c *gin.Context) auditdomain.Actor {
	id := strings.TrimSpace(c.GetHeader("X-Actor-Id"))
	if id == "" {
		return auditdomain.SystemActor()
	}

	actorType := auditdomain.ActorType(strings.ToLower(strings.TrimSpace(c.GetHeader("X-Actor-Role"))))
	switch actorType {
	case auditdomain.ActorTypeAdmin, auditdomain.ActorTypeResident, auditdomain.ActorTypeSystem:
	default:
		actorType = auditdomain.ActorTypeAdmin
	}
	return auditdomain.Actor{Type: actorType, ID: id}
}
