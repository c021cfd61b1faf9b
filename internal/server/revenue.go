package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	revenuedomain "github.com/smallbiznis/propera/internal/revenue/domain"
)

type monthlyRevenueResponse struct {
	Month  string `json:"month"`
	Sales  string `json:"sales"`
	Rental string `json:"rental"`
	Total  string `json:"total"`
}

type revenueSummaryResponse struct {
	Year   int                      `json:"year"`
	Months []monthlyRevenueResponse `json:"months"`
}

func toRevenueSummaryResponse(summary *revenuedomain.Summary) revenueSummaryResponse {
	resp := revenueSummaryResponse{
		Year:   summary.Year,
		Months: make([]monthlyRevenueResponse, 0, len(summary.Months)),
	}
	for _, m := range summary.Months {
		resp.Months = append(resp.Months, monthlyRevenueResponse{
			Month:  m.Month.Format("2006-01"),
			Sales:  m.Sales.StringFixed(2),
			Rental: m.Rental.StringFixed(2),
			Total:  m.Total.StringFixed(2),
		})
	}
	return resp
}

func (s *Server) RevenueSummary(c *gin.Context) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param("year")))
	if err != nil || year < 1970 || year > time.Now().Year()+10 {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	summary, err := s.revenueSvc.MonthlySummary(c.Request.Context(), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRevenueSummaryResponse(summary)})
}
