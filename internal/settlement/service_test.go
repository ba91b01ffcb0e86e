package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/worklane/worklane-backend/pkg/db/models"
	"github.com/worklane/worklane-backend/pkg/enums"
	"github.com/worklane/worklane-backend/pkg/logger"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  payment_type TEXT,
  transaction_id TEXT,
  referral_code TEXT,
  payment_metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS digital_orders (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  status TEXT NOT NULL DEFAULT 'pending',
  provider TEXT NOT NULL,
  payment_type TEXT,
  transaction_id TEXT,
  referral_code TEXT,
  payment_metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'payment_pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  estimate_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS estimates (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  total_cost_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'IDR',
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingCrediter struct {
	calls []string
}

func (c *recordingCrediter) CreditForOrder(ctx context.Context, orderID, referralCode string, amountCents int64) error {
	c.calls = append(c.calls, orderID)
	return nil
}

type recordingIssuer struct {
	issued  []string
	revoked []string
}

func (i *recordingIssuer) IssueForOrder(ctx context.Context, tx *gorm.DB, orderID string, productID uuid.UUID) (*models.License, error) {
	i.issued = append(i.issued, orderID)
	return &models.License{ID: uuid.New(), ProductID: productID}, nil
}

func (i *recordingIssuer) RevokeForOrder(ctx context.Context, tx *gorm.DB, orderID string) error {
	i.revoked = append(i.revoked, orderID)
	return nil
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *recordingCrediter, *recordingIssuer) {
	t.Helper()
	crediter := &recordingCrediter{}
	issuer := &recordingIssuer{}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, crediter, issuer, nil, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc, crediter, issuer
}

func seedProjectOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, referral *string) (*models.Order, *models.Project) {
	t.Helper()
	estimate := &models.Estimate{
		ID:             uuid.New(),
		ClientID:       uuid.New(),
		Status:         enums.EstimateStatusPendingPayment,
		TotalCostCents: 250_000_00,
		Currency:       "IDR",
	}
	require.NoError(t, db.Create(estimate).Error)

	project := &models.Project{
		ID:            uuid.New(),
		ClientID:      uuid.New(),
		Name:          "Landing page",
		Status:        enums.ProjectStatusPaymentPending,
		PaymentStatus: enums.ProjectPaymentStatusUnpaid,
		EstimateID:    &estimate.ID,
	}
	require.NoError(t, db.Create(project).Error)

	order := &models.Order{
		ID:           "ORD-" + uuid.NewString(),
		ProjectID:    project.ID,
		AmountCents:  250_000_00,
		Currency:     "IDR",
		Status:       status,
		Provider:     enums.ProviderMidtrans,
		ReferralCode: referral,
	}
	require.NoError(t, db.Create(order).Error)
	return order, project
}

func TestApplyPaidCascades(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, crediter, _ := newTestService(t, db)
	referral := "PARTNER10"
	order, project := seedProjectOrder(t, db, enums.OrderStatusPending, &referral)

	sibling := &models.Order{
		ID:          "ORD-" + uuid.NewString(),
		ProjectID:   project.ID,
		AmountCents: order.AmountCents,
		Currency:    "IDR",
		Status:      enums.OrderStatusPending,
		Provider:    enums.ProviderStripe,
	}
	require.NoError(t, db.Create(sibling).Error)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:       order.ID,
		Provider:      enums.ProviderMidtrans,
		TargetStatus:  enums.OrderStatusPaid,
		PaymentType:   "bank_transfer",
		TransactionID: "txn-1",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, enums.OrderStatusPending, outcome.Previous)
	assert.Equal(t, enums.OrderStatusPaid, outcome.Current)

	var gotOrder models.Order
	require.NoError(t, db.First(&gotOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
	require.NotNil(t, gotOrder.PaymentType)
	assert.Equal(t, "bank_transfer", *gotOrder.PaymentType)

	var gotProject models.Project
	require.NoError(t, db.First(&gotProject, "id = ?", project.ID).Error)
	assert.Equal(t, enums.ProjectStatusQueue, gotProject.Status)
	assert.Equal(t, enums.ProjectPaymentStatusPaid, gotProject.PaymentStatus)

	var gotEstimate models.Estimate
	require.NoError(t, db.First(&gotEstimate, "id = ?", *project.EstimateID).Error)
	assert.Equal(t, enums.EstimateStatusPaid, gotEstimate.Status)

	var gotSibling models.Order
	require.NoError(t, db.First(&gotSibling, "id = ?", sibling.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, gotSibling.Status)

	assert.Equal(t, []string{order.ID}, crediter.calls)
}

func TestApplyIsIdempotentOnRedelivery(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, crediter, _ := newTestService(t, db)
	order, _ := seedProjectOrder(t, db, enums.OrderStatusPaid, nil)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderMidtrans,
		TargetStatus: enums.OrderStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Empty(t, crediter.calls)
}

func TestApplyTerminalConflictAbsorbed(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, _ := newTestService(t, db)
	order, _ := seedProjectOrder(t, db, enums.OrderStatusCancelled, nil)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderMidtrans,
		TargetStatus: enums.OrderStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Applied)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
}

func TestApplyPaidToRefunded(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, _ := newTestService(t, db)
	order, project := seedProjectOrder(t, db, enums.OrderStatusPaid, nil)
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).
		Updates(map[string]any{"status": enums.ProjectStatusQueue, "payment_status": enums.ProjectPaymentStatusPaid}).Error)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderMidtrans,
		TargetStatus: enums.OrderStatusRefunded,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	var gotProject models.Project
	require.NoError(t, db.First(&gotProject, "id = ?", project.ID).Error)
	assert.Equal(t, enums.ProjectPaymentStatusUnpaid, gotProject.PaymentStatus)
}

func TestApplyCancelledCascades(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, _ := newTestService(t, db)
	order, project := seedProjectOrder(t, db, enums.OrderStatusPending, nil)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderMidtrans,
		TargetStatus: enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	var gotProject models.Project
	require.NoError(t, db.First(&gotProject, "id = ?", project.ID).Error)
	assert.Equal(t, enums.ProjectStatusCancelled, gotProject.Status)
}

func TestApplyUnknownOrderIsBenign(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, crediter, _ := newTestService(t, db)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      "ORD-" + uuid.NewString(),
		Provider:     enums.ProviderMidtrans,
		TargetStatus: enums.OrderStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Empty(t, crediter.calls)
}

func TestApplyProviderMismatchIgnored(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, _ := newTestService(t, db)
	order, _ := seedProjectOrder(t, db, enums.OrderStatusPending, nil)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderStripe,
		TargetStatus: enums.OrderStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Applied)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
}

func TestApplyDigitalPaidIssuesLicense(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, issuer := newTestService(t, db)

	order := &models.DigitalOrder{
		ID:          "DIG-" + uuid.NewString(),
		ProductID:   uuid.New(),
		AmountCents: 49_000_00,
		Currency:    "IDR",
		Status:      enums.OrderStatusPending,
		Provider:    enums.ProviderStripe,
	}
	require.NoError(t, db.Create(order).Error)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:       order.ID,
		Provider:      enums.ProviderStripe,
		TargetStatus:  enums.OrderStatusPaid,
		TransactionID: "pi_123",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, OrderKindDigital, outcome.Kind)
	require.NotNil(t, outcome.LicenseID)
	assert.Equal(t, []string{order.ID}, issuer.issued)
}

func TestApplyDigitalRefundRevokesLicense(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc, _, issuer := newTestService(t, db)

	order := &models.DigitalOrder{
		ID:          "DIG-" + uuid.NewString(),
		ProductID:   uuid.New(),
		AmountCents: 49_000_00,
		Currency:    "IDR",
		Status:      enums.OrderStatusPaid,
		Provider:    enums.ProviderStripe,
	}
	require.NoError(t, db.Create(order).Error)

	outcome, err := svc.Apply(context.Background(), Input{
		OrderID:      order.ID,
		Provider:     enums.ProviderStripe,
		TargetStatus: enums.OrderStatusRefunded,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, []string{order.ID}, issuer.revoked)
}

func TestMapMidtransStatus(t *testing.T) {
	cases := []struct {
		transaction string
		fraud       string
		want        enums.OrderStatus
		ok          bool
	}{
		{"settlement", "", enums.OrderStatusPaid, true},
		{"capture", "accept", enums.OrderStatusPaid, true},
		{"capture", "challenge", enums.OrderStatusWaitingVerification, true},
		{"pending", "", enums.OrderStatusWaitingVerification, true},
		{"deny", "", enums.OrderStatusDenied, true},
		{"cancel", "", enums.OrderStatusCancelled, true},
		{"expire", "", enums.OrderStatusExpired, true},
		{"refund", "", enums.OrderStatusRefunded, true},
		{"authorize", "", "", false},
	}
	for _, tc := range cases {
		got, ok := MapMidtransStatus(tc.transaction, tc.fraud)
		assert.Equal(t, tc.ok, ok, tc.transaction)
		assert.Equal(t, tc.want, got, tc.transaction)
	}
}

func TestMapStripeEvent(t *testing.T) {
	got, ok := MapStripeEvent("checkout.session.completed")
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusPaid, got)

	got, ok = MapStripeEvent("charge.refunded")
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusRefunded, got)

	_, ok = MapStripeEvent("customer.created")
	assert.False(t, ok)
}
