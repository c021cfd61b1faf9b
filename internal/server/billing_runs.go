package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Manual billing-run triggers. The scheduler runs these on a timer; operators
// can also fire them on demand, and both paths share the same claim logic so
// overlap is safe.

func (s *Server) RunAttachmentBilling(c *gin.Context) {
	created, err := s.scheduler.GenerateBills(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"bills_created": created}})
}

func (s *Server) RunRecurringBilling(c *gin.Context) {
	created, err := s.scheduler.GenerateRecurringBills(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"bills_created": created}})
}

func (s *Server) RunPropertyBilling(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	created, err := s.scheduler.GenerateBillsForProperty(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"bills_created": created}})
}
