package scheduler_test

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
	"github.com/smallbiznis/propera/internal/pricing"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	propertyrepo "github.com/smallbiznis/propera/internal/property/repository"
	propertyservice "github.com/smallbiznis/propera/internal/property/service"
	"github.com/smallbiznis/propera/internal/scheduler"
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

type fixture struct {
	db         *gorm.DB
	clock      *clock.FakeClock
	node       *snowflake.Node
	scheduler  *scheduler.Scheduler
	billRepo   billdomain.Repository
	dispatcher *recordingDispatcher
	propertyID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&propertydomain.Property{},
		&propertydomain.Resident{},
		&propertydomain.Service{},
		&propertydomain.PropertyService{},
		&propertydomain.ResidentProperty{},
		&billdomain.Bill{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	dispatcher := &recordingDispatcher{}

	auditSvc := auditservice.New(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	lookups := propertyservice.New(propertyservice.Params{DB: db, Log: zap.NewNop(), Repo: propertyrepo.Provide()})
	billRepository := billrepo.Provide()
	billSvc := billservice.New(billservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fake,
		Repo:        billRepository,
		PaymentRepo: paymentrepo.Provide(),
		Lookups:     lookups,
		AuditSvc:    auditSvc,
		Notifier:    dispatcher,
	})

	sched := scheduler.New(scheduler.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Config:       scheduler.Config{BatchSize: 50, DueInDays: 15},
		BillRepo:     billRepository,
		BillSvc:      billSvc,
		PropertyRepo: propertyrepo.Provide(),
		Pricing:      pricing.New(zap.NewNop()),
		AuditSvc:     auditSvc,
		Notifier:     dispatcher,
	})

	property := propertydomain.Property{
		ID:       node.Generate(),
		Name:     "Block A",
		Area:     decimal.NewFromInt(85),
		Currency: "USD",
	}
	require.NoError(t, db.Create(&property).Error)

	return &fixture{
		db:         db,
		clock:      fake,
		node:       node,
		scheduler:  sched,
		billRepo:   billRepository,
		dispatcher: dispatcher,
		propertyID: property.ID,
	}
}

func (f *fixture) addResident(t *testing.T, rel propertydomain.RelationshipType) snowflake.ID {
	t.Helper()
	resident := propertydomain.Resident{ID: f.node.Generate(), Name: "Resident", Email: "r@example.com"}
	require.NoError(t, f.db.Create(&resident).Error)
	require.NoError(t, f.db.Create(&propertydomain.ResidentProperty{
		ID:               f.node.Generate(),
		PropertyID:       f.propertyID,
		ResidentID:       resident.ID,
		RelationshipType: rel,
		MonthlyRent:      decimal.RequireFromString("1000.00"),
		StartDate:        f.clock.Now().AddDate(0, -6, 0),
	}).Error)
	return resident.ID
}

func (f *fixture) addService(t *testing.T, billType billdomain.BillType, recurring bool, recurrence billdomain.Recurrence) snowflake.ID {
	t.Helper()
	svc := propertydomain.Service{
		ID:          f.node.Generate(),
		Name:        string(billType),
		BillType:    billType,
		IsRecurring: recurring,
		Recurrence:  recurrence,
	}
	require.NoError(t, f.db.Create(&svc).Error)
	return svc.ID
}

func (f *fixture) attach(t *testing.T, serviceID snowflake.ID, billingType propertydomain.BillingType, price string, lastBilled *time.Time) snowflake.ID {
	t.Helper()
	now := f.clock.Now()
	attachment := propertydomain.PropertyService{
		ID:           f.node.Generate(),
		PropertyID:   f.propertyID,
		ServiceID:    serviceID,
		BillingType:  billingType,
		Price:        decimal.RequireFromString(price),
		Status:       propertydomain.AttachmentStatusActive,
		ActivatedAt:  &now,
		LastBilledAt: lastBilled,
	}
	require.NoError(t, f.db.Create(&attachment).Error)
	return attachment.ID
}

func (f *fixture) countBills(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Count(&count).Error)
	return count
}

func TestPrepaidAttachmentBilledExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeWater, false, billdomain.RecurrenceNone)
	f.attach(t, serviceID, propertydomain.BillingTypePrepaid, "500.00", nil)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Second run: anchor is set, nothing due.
	created, err = f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.EqualValues(t, 1, f.countBills(t))
}

func TestRecurringAttachmentFollowsCadence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeElectricity, true, billdomain.RecurrenceMonthly)
	f.attach(t, serviceID, propertydomain.BillingTypeFixed, "80.00", nil)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Same day again: cadence has not elapsed.
	created, err = f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	f.clock.Advance(32 * 24 * time.Hour)
	created, err = f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.EqualValues(t, 2, f.countBills(t))
}

func TestUnknownRecurrenceFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeGas, true, billdomain.Recurrence("weekly"))
	anchor := f.clock.Now().AddDate(0, -2, 0)
	attachmentID := f.attach(t, serviceID, propertydomain.BillingTypeFixed, "60.00", &anchor)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.EqualValues(t, 0, f.countBills(t))

	// The anchor must not move when the cadence cannot be evaluated.
	var attachment propertydomain.PropertyService
	require.NoError(t, f.db.First(&attachment, "id = ?", attachmentID).Error)
	require.NotNil(t, attachment.LastBilledAt)
	assert.True(t, attachment.LastBilledAt.Equal(anchor))
}

func TestUnknownRecurrenceFailsClosedOnFirstBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeGas, true, billdomain.Recurrence("weekly"))
	// Never billed: the missing anchor must not override cadence validation.
	attachmentID := f.attach(t, serviceID, propertydomain.BillingTypeFixed, "60.00", nil)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.EqualValues(t, 0, f.countBills(t))

	var attachment propertydomain.PropertyService
	require.NoError(t, f.db.First(&attachment, "id = ?", attachmentID).Error)
	assert.Nil(t, attachment.LastBilledAt)
}

func TestNonRecurringServiceNotEligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeWater, false, billdomain.RecurrenceNone)
	attachmentID := f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", nil)

	// Only pre-paid and recurring attachments ever bill; a fixed attachment
	// of a one-off service is left alone.
	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.EqualValues(t, 0, f.countBills(t))

	var attachment propertydomain.PropertyService
	require.NoError(t, f.db.First(&attachment, "id = ?", attachmentID).Error)
	assert.Nil(t, attachment.LastBilledAt)
}

func TestAdvanceLastBilledSingleClaimWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	serviceID := f.addService(t, billdomain.BillTypeWater, true, billdomain.RecurrenceMonthly)
	anchor := f.clock.Now().AddDate(0, -1, 0)
	attachmentID := f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", &anchor)

	repo := propertyrepo.Provide()
	now := f.clock.Now()

	// Two runs observed the same anchor; only one claim may land.
	claimed, err := repo.AdvanceLastBilled(ctx, f.db, attachmentID, &anchor, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.AdvanceLastBilled(ctx, f.db, attachmentID, &anchor, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Same rule for the never-billed case.
	freshID := f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", nil)
	claimed, err = repo.AdvanceLastBilled(ctx, f.db, freshID, nil, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.AdvanceLastBilled(ctx, f.db, freshID, nil, now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestEligibilityFiltersResidents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	renterID := f.addResident(t, propertydomain.RelationshipRenter)
	f.addResident(t, propertydomain.RelationshipBuyer)

	serviceID := f.addService(t, billdomain.BillTypeWater, true, billdomain.RecurrenceMonthly)
	f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", nil)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var bills []billdomain.Bill
	require.NoError(t, f.db.Find(&bills).Error)
	require.Len(t, bills, 1)
	assert.Equal(t, renterID, bills[0].ResidentID)
}

func TestAreaBasedAmountAndDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeWater, true, billdomain.RecurrenceMonthly)
	f.attach(t, serviceID, propertydomain.BillingTypeAreaBased, "30.00", nil)

	created, err := f.scheduler.GenerateBillsForProperty(ctx, f.propertyID)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	var bill billdomain.Bill
	require.NoError(t, f.db.First(&bill).Error)
	// 30.00 per 100 units on an 85-unit property.
	assert.Equal(t, "25.50", bill.Amount.StringFixed(2))
	assert.True(t, bill.DueDate.UTC().Equal(f.clock.Now().AddDate(0, 0, 15)))
	assert.Equal(t, billdomain.RecurrenceNone, bill.Recurrence)
}

func TestGenerateBillsSweepsAllProperties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeWater, true, billdomain.RecurrenceMonthly)
	f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", nil)

	created, err := f.scheduler.GenerateBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestRecurringTemplateSpawnsOneOffBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	residentID := f.addResident(t, propertydomain.RelationshipRenter)
	nextBilling := f.clock.Now().AddDate(0, 0, -1)
	template := billdomain.Bill{
		ID:              f.node.Generate(),
		PropertyID:      f.propertyID,
		ResidentID:      residentID,
		BillType:        billdomain.BillTypeRent,
		Amount:          decimal.RequireFromString("1400.00"),
		Currency:        "USD",
		DueDate:         f.clock.Now().AddDate(0, -1, 0),
		Status:          billdomain.BillStatusPaid,
		Recurrence:      billdomain.RecurrenceMonthly,
		NextBillingDate: &nextBilling,
	}
	require.NoError(t, f.db.Create(&template).Error)

	created, err := f.scheduler.GenerateRecurringBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var spawned billdomain.Bill
	require.NoError(t, f.db.First(&spawned, "id <> ?", template.ID).Error)
	assert.Equal(t, billdomain.RecurrenceNone, spawned.Recurrence)
	assert.Equal(t, "1400.00", spawned.Amount.StringFixed(2))
	assert.Equal(t, billdomain.BillStatusPending, spawned.Status)
	assert.True(t, spawned.DueDate.UTC().Equal(f.clock.Now().AddDate(0, 0, 15)))

	// Template advanced one cadence; nothing further is due.
	var stored billdomain.Bill
	require.NoError(t, f.db.First(&stored, "id = ?", template.ID).Error)
	require.NotNil(t, stored.NextBillingDate)
	assert.True(t, stored.NextBillingDate.After(f.clock.Now()))

	created, err = f.scheduler.GenerateRecurringBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestFailedSpawnLeavesTemplateDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	residentID := f.addResident(t, propertydomain.RelationshipRenter)
	nextBilling := f.clock.Now().AddDate(0, 0, -1)
	template := billdomain.Bill{
		ID:              f.node.Generate(),
		PropertyID:      f.propertyID,
		ResidentID:      residentID,
		BillType:        billdomain.BillTypeRent,
		Amount:          decimal.RequireFromString("1400.00"),
		Currency:        "USD",
		DueDate:         f.clock.Now().AddDate(0, -1, 0),
		Status:          billdomain.BillStatusPaid,
		Recurrence:      billdomain.RecurrenceMonthly,
		NextBillingDate: &nextBilling,
	}
	require.NoError(t, f.db.Create(&template).Error)

	// Occupy the slot the spawn would take, then make it unique so the
	// spawn insert fails inside the sweep.
	decoy := billdomain.Bill{
		ID:         f.node.Generate(),
		PropertyID: f.propertyID,
		ResidentID: residentID,
		BillType:   billdomain.BillTypeRent,
		Amount:     decimal.RequireFromString("1400.00"),
		Currency:   "USD",
		DueDate:    f.clock.Now().AddDate(0, 0, 15),
		Status:     billdomain.BillStatusPending,
		Recurrence: billdomain.RecurrenceNone,
	}
	require.NoError(t, f.db.Create(&decoy).Error)
	require.NoError(t, f.db.Exec(
		"CREATE UNIQUE INDEX ux_bills_slot ON bills(property_id, resident_id, due_date)",
	).Error)

	created, err := f.scheduler.GenerateRecurringBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// The claim rolled back with the insert: the template is still due.
	var stored billdomain.Bill
	require.NoError(t, f.db.First(&stored, "id = ?", template.ID).Error)
	require.NotNil(t, stored.NextBillingDate)
	assert.True(t, stored.NextBillingDate.UTC().Equal(nextBilling))

	require.NoError(t, f.db.Exec("DROP INDEX ux_bills_slot").Error)
	created, err = f.scheduler.GenerateRecurringBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.NoError(t, f.db.First(&stored, "id = ?", template.ID).Error)
	require.NotNil(t, stored.NextBillingDate)
	assert.True(t, stored.NextBillingDate.After(f.clock.Now()))
}

func TestRunOnceExecutesEnabledJobs(t *testing.T) {
	f := newFixture(t)

	f.addResident(t, propertydomain.RelationshipRenter)
	serviceID := f.addService(t, billdomain.BillTypeWater, true, billdomain.RecurrenceMonthly)
	f.attach(t, serviceID, propertydomain.BillingTypeFixed, "40.00", nil)

	f.scheduler.RunOnce(context.Background())
	assert.EqualValues(t, 1, f.countBills(t))
}
