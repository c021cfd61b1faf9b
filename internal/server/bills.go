package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
)

type createBillRequest struct {
	PropertyID      string         `json:"property_id" binding:"required"`
	ResidentID      string         `json:"resident_id" binding:"required"`
	BillType        string         `json:"bill_type" binding:"required"`
	Amount          string         `json:"amount" binding:"required"`
	Currency        string         `json:"currency" binding:"required"`
	DueDate         string         `json:"due_date" binding:"required"`
	Recurrence      string         `json:"recurrence"`
	NextBillingDate string         `json:"next_billing_date"`
	Metadata        map[string]any `json:"metadata"`
}

type billResponse struct {
	ID              string         `json:"id"`
	PropertyID      string         `json:"property_id"`
	ResidentID      string         `json:"resident_id"`
	BillType        string         `json:"bill_type"`
	Amount          string         `json:"amount"`
	Currency        string         `json:"currency"`
	DueDate         time.Time      `json:"due_date"`
	Status          string         `json:"status"`
	Recurrence      string         `json:"recurrence"`
	NextBillingDate *time.Time     `json:"next_billing_date,omitempty"`
	CreatedBy       string         `json:"created_by,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func toBillResponse(bill *billdomain.Bill) billResponse {
	return billResponse{
		ID:              bill.ID.String(),
		PropertyID:      bill.PropertyID.String(),
		ResidentID:      bill.ResidentID.String(),
		BillType:        string(bill.BillType),
		Amount:          bill.Amount.StringFixed(2),
		Currency:        bill.Currency,
		DueDate:         bill.DueDate,
		Status:          string(bill.Status),
		Recurrence:      string(bill.Recurrence),
		NextBillingDate: bill.NextBillingDate,
		CreatedBy:       bill.CreatedBy,
		Metadata:        map[string]any(bill.Metadata),
		CreatedAt:       bill.CreatedAt,
		UpdatedAt:       bill.UpdatedAt,
	}
}

func (s *Server) CreateBill(c *gin.Context) {
	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	propertyID, err := parseID("property_id", req.PropertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	residentID, err := parseID("resident_id", req.ResidentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var nextBilling *time.Time
	if req.NextBillingDate != "" {
		parsed, err := parseDate("next_billing_date", req.NextBillingDate)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		nextBilling = &parsed
	}

	actor := requestActor(c)
	bill, err := s.billSvc.Create(c.Request.Context(), billdomain.CreateBillRequest{
		PropertyID:      propertyID,
		ResidentID:      residentID,
		BillType:        billdomain.BillType(req.BillType),
		Amount:          amount,
		Currency:        req.Currency,
		DueDate:         dueDate,
		Recurrence:      billdomain.Recurrence(req.Recurrence),
		NextBillingDate: nextBilling,
		CreatedBy:       actor.ID,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toBillResponse(bill)})
}

func (s *Server) GetBill(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	bill, err := s.billSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBillResponse(bill)})
}

type updateBillRequest struct {
	BillType        *string `json:"bill_type"`
	Amount          *string `json:"amount"`
	Currency        *string `json:"currency"`
	DueDate         *string `json:"due_date"`
	Recurrence      *string `json:"recurrence"`
	NextBillingDate *string `json:"next_billing_date"`
}

func (s *Server) UpdateBill(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch := billdomain.UpdateBillRequest{}
	if req.BillType != nil {
		billType := billdomain.BillType(*req.BillType)
		patch.BillType = &billType
	}
	if req.Amount != nil {
		amount, err := parseAmount("amount", *req.Amount)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		patch.Amount = &amount
	}
	if req.Currency != nil {
		patch.Currency = req.Currency
	}
	if req.DueDate != nil {
		dueDate, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		patch.DueDate = &dueDate
	}
	if req.Recurrence != nil {
		recurrence := billdomain.Recurrence(*req.Recurrence)
		patch.Recurrence = &recurrence
	}
	if req.NextBillingDate != nil {
		next, err := parseDate("next_billing_date", *req.NextBillingDate)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		patch.NextBillingDate = &next
	}

	bill, err := s.billSvc.Update(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBillResponse(bill)})
}

func (s *Server) CancelBill(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.billSvc.Cancel(c.Request.Context(), id, requestActor(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String(), "status": string(billdomain.BillStatusCancelled)}})
}

func (s *Server) ReconcileBill(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.billSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String(), "status": string(status)}})
}
