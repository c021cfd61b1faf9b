package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	auditservice "github.com/smallbiznis/propera/internal/audit/service"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	billrepo "github.com/smallbiznis/propera/internal/bill/repository"
	billservice "github.com/smallbiznis/propera/internal/bill/service"
	"github.com/smallbiznis/propera/internal/clock"
	"github.com/smallbiznis/propera/internal/notifier"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/propera/internal/payment/repository"
	paymentservice "github.com/smallbiznis/propera/internal/payment/service"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	propertyrepo "github.com/smallbiznis/propera/internal/property/repository"
	propertyservice "github.com/smallbiznis/propera/internal/property/service"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (d *recordingDispatcher) Dispatch(event notifier.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) count(t notifier.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	db         *gorm.DB
	clock      *clock.FakeClock
	billSvc    billdomain.Service
	paymentSvc paymentdomain.Service
	dispatcher *recordingDispatcher
	node       *snowflake.Node
	propertyID snowflake.ID
	residentID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&propertydomain.Property{},
		&propertydomain.Resident{},
		&billdomain.Bill{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	dispatcher := &recordingDispatcher{}

	auditSvc := auditservice.New(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	lookups := propertyservice.New(propertyservice.Params{DB: db, Log: zap.NewNop(), Repo: propertyrepo.Provide()})
	paymentRepo := paymentrepo.Provide()
	billSvc := billservice.New(billservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Repo:        billrepo.Provide(),
		PaymentRepo: paymentRepo,
		Lookups:     lookups,
		AuditSvc:    auditSvc,
		Notifier:    dispatcher,
	})
	paymentSvc := paymentservice.New(paymentservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     paymentRepo,
		BillSvc:  billSvc,
		Lookups:  lookups,
		AuditSvc: auditSvc,
		Notifier: dispatcher,
	})

	property := propertydomain.Property{ID: node.Generate(), Name: "Unit 4", Currency: "USD"}
	resident := propertydomain.Resident{ID: node.Generate(), Name: "Pat", Email: "pat@example.com"}
	require.NoError(t, db.Create(&property).Error)
	require.NoError(t, db.Create(&resident).Error)

	return &fixture{
		db:         db,
		clock:      fake,
		billSvc:    billSvc,
		paymentSvc: paymentSvc,
		dispatcher: dispatcher,
		node:       node,
		propertyID: property.ID,
		residentID: resident.ID,
	}
}

func (f *fixture) createBill(t *testing.T, amount string) *billdomain.Bill {
	t.Helper()
	bill, err := f.billSvc.Create(context.Background(), billdomain.CreateBillRequest{
		PropertyID: f.propertyID,
		ResidentID: f.residentID,
		BillType:   billdomain.BillTypeMaintenance,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "USD",
		DueDate:    f.clock.Now().AddDate(0, 0, 14),
		CreatedBy:  "admin-1",
	})
	require.NoError(t, err)
	return bill
}

func (f *fixture) process(t *testing.T, billID snowflake.ID, amount, txID string, status paymentdomain.PaymentStatus) *paymentdomain.Payment {
	t.Helper()
	payment, err := f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        billID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USD",
		Status:        status,
		TransactionID: txID,
	})
	require.NoError(t, err)
	return payment
}

func TestProcessCompletedPaymentReconcilesBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	f.process(t, bill.ID, "300.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPaid, stored.Status)
	assert.Equal(t, 1, f.dispatcher.count(notifier.EventPaymentReceived))
}

func TestProcessPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	f.process(t, bill.ID, "100.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPartiallyPaid, stored.Status)
}

func TestProcessPendingPaymentDoesNotMoveBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	f.process(t, bill.ID, "300.00", "tx-1", paymentdomain.PaymentStatusPending)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPending, stored.Status)
	assert.Equal(t, 0, f.dispatcher.count(notifier.EventPaymentReceived))
}

func TestProcessDuplicateTransactionRejected(t *testing.T) {
	f := newFixture(t)

	bill := f.createBill(t, "300.00")
	f.process(t, bill.ID, "100.00", "tx-dup", paymentdomain.PaymentStatusCompleted)

	_, err := f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-dup",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateTransaction)
}

func TestProcessAgainstCancelledBillRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	require.NoError(t, f.billSvc.Cancel(ctx, bill.ID, auditdomain.SystemActor()))

	// Cancel soft-deletes an unpaid bill, so the lookup reports not found.
	_, err := f.paymentSvc.Process(ctx, paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, billdomain.ErrBillNotFound)

	// A cancelled bill that has payment history keeps its row and rejects
	// further payments explicitly.
	withHistory := f.createBill(t, "100.00")
	f.process(t, withHistory.ID, "20.00", "tx-2", paymentdomain.PaymentStatusCompleted)
	require.NoError(t, f.billSvc.Cancel(ctx, withHistory.ID, auditdomain.SystemActor()))

	_, err = f.paymentSvc.Process(ctx, paymentdomain.ProcessPaymentRequest{
		BillID:        withHistory.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("80.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-3",
	})
	assert.ErrorIs(t, err, billdomain.ErrBillCancelled)
}

func TestProcessValidation(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, "300.00")

	_, err := f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("-5.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("5.00"),
		Currency:      "dollars",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidCurrency)

	_, err = f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.residentID,
		Amount:        decimal.RequireFromString("5.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatus("settled"),
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidStatus)
}

func TestProcessUnknownResidentRejected(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, "300.00")

	_, err := f.paymentSvc.Process(context.Background(), paymentdomain.ProcessPaymentRequest{
		BillID:        bill.ID,
		ResidentID:    f.node.Generate(),
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		Status:        paymentdomain.PaymentStatusCompleted,
		TransactionID: "tx-1",
	})
	assert.ErrorIs(t, err, propertydomain.ErrResidentNotFound)
}

func TestUpdateStatusToCompletedReconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "200.00")
	payment := f.process(t, bill.ID, "200.00", "tx-1", paymentdomain.PaymentStatusPending)

	updated, err := f.paymentSvc.UpdateStatus(ctx, payment.ID, paymentdomain.PaymentStatusCompleted, auditdomain.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusCompleted, updated.Status)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPaid, stored.Status)
}

func TestUpdateStatusAwayFromCompletedReopensBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "200.00")
	payment := f.process(t, bill.ID, "200.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	_, err := f.paymentSvc.UpdateStatus(ctx, payment.ID, paymentdomain.PaymentStatusFailed, auditdomain.SystemActor())
	require.NoError(t, err)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPending, stored.Status)
}

func TestRefundRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	payment := f.process(t, bill.ID, "300.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	refund, err := f.paymentSvc.Refund(ctx, payment.ID, decimal.RequireFromString("300.00"), "overcharge", auditdomain.SystemActor())
	require.NoError(t, err)
	assert.True(t, refund.Amount.Equal(decimal.RequireFromString("-300.00")))
	assert.Equal(t, payment.ID.String(), refund.Metadata[paymentdomain.MetaOriginalPaymentID])

	// The refund reopens the bill; paid never survives a full refund.
	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPending, stored.Status)
	assert.Equal(t, 1, f.dispatcher.count(notifier.EventPaymentRefunded))

	original, err := f.paymentSvc.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, original.IsRefunded())
}

func TestRefundPartialKeepsBillPartiallyPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	payment := f.process(t, bill.ID, "300.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	_, err := f.paymentSvc.Refund(ctx, payment.ID, decimal.RequireFromString("100.00"), "partial", auditdomain.SystemActor())
	require.NoError(t, err)

	stored, err := f.billSvc.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.BillStatusPartiallyPaid, stored.Status)
}

func TestRefundGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.createBill(t, "300.00")
	payment := f.process(t, bill.ID, "300.00", "tx-1", paymentdomain.PaymentStatusCompleted)

	_, err := f.paymentSvc.Refund(ctx, payment.ID, decimal.RequireFromString("400.00"), "too much", auditdomain.SystemActor())
	assert.ErrorIs(t, err, paymentdomain.ErrRefundExceedsOriginal)

	refund, err := f.paymentSvc.Refund(ctx, payment.ID, decimal.RequireFromString("300.00"), "ok", auditdomain.SystemActor())
	require.NoError(t, err)

	_, err = f.paymentSvc.Refund(ctx, payment.ID, decimal.RequireFromString("300.00"), "again", auditdomain.SystemActor())
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyRefunded)

	// A refund row itself can never be refunded.
	_, err = f.paymentSvc.Refund(ctx, refund.ID, decimal.RequireFromString("300.00"), "refund the refund", auditdomain.SystemActor())
	assert.ErrorIs(t, err, paymentdomain.ErrNotRefundable)

	pending := f.process(t, bill.ID, "10.00", "tx-2", paymentdomain.PaymentStatusPending)
	_, err = f.paymentSvc.Refund(ctx, pending.ID, decimal.RequireFromString("10.00"), "not settled", auditdomain.SystemActor())
	assert.ErrorIs(t, err, paymentdomain.ErrNotRefundable)
}
