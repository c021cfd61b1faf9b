package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
)

type processPaymentRequest struct {
	BillID        string         `json:"bill_id" binding:"required"`
	ResidentID    string         `json:"resident_id" binding:"required"`
	Amount        string         `json:"amount" binding:"required"`
	Currency      string         `json:"currency" binding:"required"`
	Status        string         `json:"status"`
	TransactionID string         `json:"transaction_id" binding:"required"`
	PaymentDate   string         `json:"payment_date"`
	Metadata      map[string]any `json:"metadata"`
}

type paymentResponse struct {
	ID            string         `json:"id"`
	BillID        string         `json:"bill_id"`
	ResidentID    string         `json:"resident_id"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	TransactionID string         `json:"transaction_id"`
	PaymentDate   time.Time      `json:"payment_date"`
	ProcessedBy   string         `json:"processed_by,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toPaymentResponse(payment *paymentdomain.Payment) paymentResponse {
	return paymentResponse{
		ID:            payment.ID.String(),
		BillID:        payment.BillID.String(),
		ResidentID:    payment.ResidentID.String(),
		Amount:        payment.Amount.StringFixed(2),
		Currency:      payment.Currency,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		PaymentDate:   payment.PaymentDate,
		ProcessedBy:   payment.ProcessedBy,
		Metadata:      map[string]any(payment.Metadata),
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

func (s *Server) ProcessPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	billID, err := parseID("bill_id", req.BillID)
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

	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, err = parseDate("payment_date", req.PaymentDate)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	status := paymentdomain.PaymentStatus(req.Status)
	if req.Status == "" {
		status = paymentdomain.PaymentStatusCompleted
	}

	actor := requestActor(c)
	payment, err := s.paymentSvc.Process(c.Request.Context(), paymentdomain.ProcessPaymentRequest{
		BillID:        billID,
		ResidentID:    residentID,
		Amount:        amount,
		Currency:      req.Currency,
		Status:        status,
		TransactionID: req.TransactionID,
		PaymentDate:   paymentDate,
		ProcessedBy:   actor.ID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toPaymentResponse(payment)})
}

func (s *Server) GetPayment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(payment)})
}

type updatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) UpdatePaymentStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.UpdateStatus(c.Request.Context(), id, paymentdomain.PaymentStatus(req.Status), requestActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toPaymentResponse(payment)})
}

type refundPaymentRequest struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) RefundPayment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req refundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	refund, err := s.paymentSvc.Refund(c.Request.Context(), id, amount, req.Reason, requestActor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toPaymentResponse(refund)})
}
