package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/config"
	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/models"
	dealsrepo "github.com/smile200420ff/Main-bot/internal/repositories/deals"
	paymentsrepo "github.com/smile200420ff/Main-bot/internal/repositories/payments"
	"github.com/smile200420ff/Main-bot/internal/repositories/repomanager"
	usersrepo "github.com/smile200420ff/Main-bot/internal/repositories/users"
)

// -------- test fakes --------

// fakeDealsRepo keeps deals in memory so lifecycle scenarios can run
// end-to-end without a database.
type fakeDealsRepo struct {
	dealsrepo.Repository
	mu    sync.Mutex
	byID  map[string]*models.Deal
	order []string

	createErrs []error // popped one per Create call; nil entry means no forced error
	updateErr  error
}

func newFakeDealsRepo(seed ...*models.Deal) *fakeDealsRepo {
	f := &fakeDealsRepo{byID: map[string]*models.Deal{}}
	for _, d := range seed {
		cp := *d
		if cp.Status == "" {
			cp.Status = models.DealStatusCreated
		}
		f.byID[cp.ID] = &cp
		f.order = append(f.order, cp.ID)
	}
	return f
}

func (f *fakeDealsRepo) Create(ctx context.Context, d *models.Deal) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if _, ok := f.byID[d.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	cp := *d
	cp.Status = models.DealStatusCreated
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byID[cp.ID] = &cp
	f.order = append(f.order, cp.ID)
	out := cp
	return &out, nil
}

func (f *fakeDealsRepo) Get(ctx context.Context, id string) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDealsRepo) GetForUpdate(ctx context.Context, id string) (*models.Deal, error) {
	return f.Get(ctx, id)
}

func (f *fakeDealsRepo) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Deal
	for i := len(f.order) - 1; i >= 0; i-- {
		if d := f.byID[f.order[i]]; d.CreatorID == creatorID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeDealsRepo) List(ctx context.Context, status models.DealStatus) ([]*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Deal
	for i := len(f.order) - 1; i >= 0; i-- {
		if d := f.byID[f.order[i]]; status == "" || d.Status == status {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeDealsRepo) UpdateStatus(ctx context.Context, id string, status models.DealStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	d, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDealsRepo) Stats(ctx context.Context) (*models.DealStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.DealStats{}
	for _, d := range f.byID {
		stats.TotalDeals++
		switch d.Status {
		case models.DealStatusCreated, models.DealStatusFunded:
			stats.ActiveDeals++
			stats.TotalActiveValue += d.Amount
		case models.DealStatusCompleted:
			stats.CompletedDeals++
		case models.DealStatusDisputed:
			stats.DisputedDeals++
		case models.DealStatusCancelled:
			stats.CancelledDeals++
		}
	}
	return stats, nil
}

type fakePaymentsRepo struct {
	paymentsrepo.Repository
	mu        sync.Mutex
	recorded  []*models.Payment
	createErr error
}

func (f *fakePaymentsRepo) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *p
	cp.CreatedAt = time.Now()
	f.recorded = append(f.recorded, &cp)
	out := cp
	return &out, nil
}

func (f *fakePaymentsRepo) ListByDeal(ctx context.Context, dealID string) ([]*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Payment
	for _, p := range f.recorded {
		if p.DealID == dealID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

type fakeUsersRepo struct {
	usersrepo.Repository
	upserted  []*models.User
	upsertErr error

	getOut *models.User
	getErr error

	listOut []*models.User
	listErr error

	countOut int64
	countErr error
}

func (f *fakeUsersRepo) Upsert(ctx context.Context, u *models.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, u)
	return nil
}

func (f *fakeUsersRepo) Get(ctx context.Context, userID int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) ListActive(ctx context.Context) ([]*models.User, error) {
	return f.listOut, f.listErr
}

func (f *fakeUsersRepo) CountActive(ctx context.Context) (int64, error) {
	return f.countOut, f.countErr
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	d *fakeDealsRepo
	p *fakePaymentsRepo
	u *fakeUsersRepo
}

func (m *fakeRepoManager) Deals(db dbx.DBTX) dealsrepo.Repository       { return m.d }
func (m *fakeRepoManager) Payments(db dbx.DBTX) paymentsrepo.Repository { return m.p }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }

// fakeReporter records what the service told the security monitor.
type fakeReporter struct {
	mu         sync.Mutex
	failed     []string
	suspicious []string
}

func (f *fakeReporter) FailedAttempt(userID int64, attemptType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, fmt.Sprintf("%d:%s", userID, attemptType))
}

func (f *fakeReporter) Suspicious(userID int64, activity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspicious = append(f.suspicious, fmt.Sprintf("%d:%s", userID, activity))
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newDealService(t *testing.T, db *sql.DB, m repomanager.RepositoryManager, reporter SecurityReporter) *DealService {
	t.Helper()
	cfg := &config.Config{
		UPIAddress:   "escrow@upi",
		UPIPayeeName: "Escrow Service",
	}
	return NewDealService(db, m, reporter, cfg)
}

const (
	validDescription = "Sell a vintage mechanical watch"
	validTerms       = "Item shipped within 3 days of payment confirmation"
)

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

// -------- tests --------

func TestCreate_ValidInput(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := newFakeDealsRepo()
	reporter := &fakeReporter{}
	s := newDealService(t, db, &fakeRepoManager{d: repo}, reporter)

	deal, err := s.Create(context.Background(), 101, validDescription, 1000, validTerms)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(deal.ID) != 8 {
		t.Fatalf("deal ID must be 8 chars, got %q", deal.ID)
	}
	if deal.Status != models.DealStatusCreated {
		t.Fatalf("new deal must start in created, got %s", deal.Status)
	}
	if len(reporter.failed) != 0 {
		t.Fatalf("valid input must not count as a failed attempt: %v", reporter.failed)
	}
}

func TestCreate_SanitizesMarkup(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := newFakeDealsRepo()
	s := newDealService(t, db, &fakeRepoManager{d: repo}, &fakeReporter{})

	deal, err := s.Create(context.Background(), 101, "  Sell <b>rare</b> vinyl records  ", 1000, validTerms)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if strings.ContainsAny(deal.Description, "<>") {
		t.Fatalf("markup must be escaped, got %q", deal.Description)
	}
	if strings.HasPrefix(deal.Description, " ") {
		t.Fatalf("description must be trimmed, got %q", deal.Description)
	}
}

func TestCreate_ValidationRejected(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	cases := []struct {
		name        string
		description string
		amount      float64
		terms       string
		wantMsg     string
	}{
		{"short description", "too short", 1000, validTerms, "Description must be at least 10 characters"},
		{"amount below minimum", validDescription, 50, validTerms, "Minimum amount is ₹100"},
		{"amount above maximum", validDescription, 600000, validTerms, "Maximum amount is ₹5,00,000"},
		{"short terms", validDescription, 1000, "pay me", "Terms must be at least 20 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeDealsRepo()
			reporter := &fakeReporter{}
			s := newDealService(t, db, &fakeRepoManager{d: repo}, reporter)

			_, err := s.Create(context.Background(), 101, tc.description, tc.amount, tc.terms)
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("want ErrorValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("want message %q, got %v", tc.wantMsg, err)
			}
			if len(reporter.failed) != 1 || reporter.failed[0] != "101:deal_validation" {
				t.Fatalf("validation failure must be reported once, got %v", reporter.failed)
			}
			if len(repo.byID) != 0 {
				t.Fatalf("rejected deal must not be stored")
			}
		})
	}
}

func TestCreate_RetriesOnIDCollision(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := newFakeDealsRepo()
	repo.createErrs = []error{common.ErrorAlreadyExists, common.ErrorAlreadyExists, nil}
	s := newDealService(t, db, &fakeRepoManager{d: repo}, &fakeReporter{})

	deal, err := s.Create(context.Background(), 101, validDescription, 1000, validTerms)
	if err != nil {
		t.Fatalf("Create must succeed on the third ID, got %v", err)
	}
	if deal == nil || len(deal.ID) != 8 {
		t.Fatalf("unexpected deal: %+v", deal)
	}
}

func TestCreate_GivesUpAfterRetries(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := newFakeDealsRepo()
	repo.createErrs = []error{common.ErrorAlreadyExists, common.ErrorAlreadyExists, common.ErrorAlreadyExists}
	s := newDealService(t, db, &fakeRepoManager{d: repo}, &fakeReporter{})

	_, err := s.Create(context.Background(), 101, validDescription, 1000, validTerms)
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal after exhausting retries, got %v", err)
	}
}

func TestCreate_StoreError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := newFakeDealsRepo()
	repo.createErrs = []error{errBoom{}}
	s := newDealService(t, db, &fakeRepoManager{d: repo}, &fakeReporter{})

	_, err := s.Create(context.Background(), 101, validDescription, 1000, validTerms)
	if err == nil || !strings.Contains(err.Error(), "error creating deal:") {
		t.Fatalf("want wrapped store error, got %v", err)
	}
}

func TestSubmitPayment_FundsDeal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500})
	payRepo := &fakePaymentsRepo{}
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo, p: payRepo}, &fakeReporter{})

	payment, err := s.SubmitPayment(context.Background(), "A1B2C3D4", 202, "upi", "UTR123456")
	if err != nil {
		t.Fatalf("SubmitPayment error: %v", err)
	}
	if payment.ID == "" {
		t.Fatalf("payment must get an ID")
	}
	if payment.Amount != 1500 {
		t.Fatalf("payment amount must equal the deal amount, got %v", payment.Amount)
	}
	if payment.Status != models.PaymentStatusConfirmed {
		t.Fatalf("claim must be recorded as confirmed, got %s", payment.Status)
	}

	deal, _ := dealRepo.Get(context.Background(), "A1B2C3D4")
	if deal.Status != models.DealStatusFunded {
		t.Fatalf("deal must move to funded, got %s", deal.Status)
	}
	if len(payRepo.recorded) != 1 {
		t.Fatalf("exactly one payment row expected, got %d", len(payRepo.recorded))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSubmitPayment_AlreadyFunded(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, false)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: models.DealStatusFunded})
	payRepo := &fakePaymentsRepo{}
	reporter := &fakeReporter{}
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo, p: payRepo}, reporter)

	_, err := s.SubmitPayment(context.Background(), "A1B2C3D4", 202, "upi", "")
	if !errors.Is(err, common.ErrorIllegalTransition) {
		t.Fatalf("want ErrorIllegalTransition, got %v", err)
	}
	if len(payRepo.recorded) != 0 {
		t.Fatalf("no payment row on a rejected claim")
	}
	if len(reporter.suspicious) != 1 {
		t.Fatalf("rejected claim must be reported as suspicious, got %v", reporter.suspicious)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSubmitPayment_RecordFailureRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, false)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500})
	payRepo := &fakePaymentsRepo{createErr: errBoom{}}
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo, p: payRepo}, &fakeReporter{})

	_, err := s.SubmitPayment(context.Background(), "A1B2C3D4", 202, "upi", "")
	if err == nil || !strings.Contains(err.Error(), "error recording payment:") {
		t.Fatalf("want wrapped record error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRelease_ByCreator(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: models.DealStatusFunded})
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	deal, err := s.Release(context.Background(), "A1B2C3D4", Actor{UserID: 101})
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if deal.Status != models.DealStatusCompleted {
		t.Fatalf("want completed, got %s", deal.Status)
	}
}

func TestRelease_ByStranger(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, false)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: models.DealStatusFunded})
	reporter := &fakeReporter{}
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, reporter)

	_, err := s.Release(context.Background(), "A1B2C3D4", Actor{UserID: 999})
	if !errors.Is(err, common.ErrorAccessDenied) {
		t.Fatalf("want ErrorAccessDenied, got %v", err)
	}
	if len(reporter.failed) != 1 || reporter.failed[0] != "999:deal_access" {
		t.Fatalf("denied access must be reported, got %v", reporter.failed)
	}

	deal, _ := dealRepo.Get(context.Background(), "A1B2C3D4")
	if deal.Status != models.DealStatusFunded {
		t.Fatalf("status must not change on denial, got %s", deal.Status)
	}
}

func TestDispute_ByCreator(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: models.DealStatusFunded})
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	deal, err := s.Dispute(context.Background(), "A1B2C3D4", Actor{UserID: 101})
	if err != nil {
		t.Fatalf("Dispute error: %v", err)
	}
	if deal.Status != models.DealStatusDisputed {
		t.Fatalf("want disputed, got %s", deal.Status)
	}
}

func TestResolve_AdminOnly(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// the creator is refused first, then the admin resolves
	expectTx(mock, false)
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: models.DealStatusDisputed})
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	if _, err := s.Resolve(context.Background(), "A1B2C3D4", Actor{UserID: 101}); !errors.Is(err, common.ErrorAccessDenied) {
		t.Fatalf("creator must not resolve a dispute, got %v", err)
	}

	deal, err := s.Resolve(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
	if err != nil {
		t.Fatalf("admin Resolve error: %v", err)
	}
	if deal.Status != models.DealStatusCompleted {
		t.Fatalf("want completed, got %s", deal.Status)
	}
}

func TestCancel_AdminOnly(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	expectTx(mock, false)
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500})
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	if _, err := s.Cancel(context.Background(), "A1B2C3D4", Actor{UserID: 101}); !errors.Is(err, common.ErrorAccessDenied) {
		t.Fatalf("creator must not cancel, got %v", err)
	}

	deal, err := s.Cancel(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
	if err != nil {
		t.Fatalf("admin Cancel error: %v", err)
	}
	if deal.Status != models.DealStatusCancelled {
		t.Fatalf("want cancelled, got %s", deal.Status)
	}
}

func TestIllegalTransition_RejectedForAdmin(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	cases := []struct {
		name string
		from models.DealStatus
		move func(s *DealService) (*models.Deal, error)
	}{
		{"release a created deal", models.DealStatusCreated, func(s *DealService) (*models.Deal, error) {
			return s.Release(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
		}},
		{"cancel a funded deal", models.DealStatusFunded, func(s *DealService) (*models.Deal, error) {
			return s.Cancel(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
		}},
		{"dispute a completed deal", models.DealStatusCompleted, func(s *DealService) (*models.Deal, error) {
			return s.Dispute(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
		}},
		{"cancel a cancelled deal", models.DealStatusCancelled, func(s *DealService) (*models.Deal, error) {
			return s.Cancel(context.Background(), "A1B2C3D4", Actor{UserID: 1, Admin: true})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectTx(mock, false)

			dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500, Status: tc.from})
			reporter := &fakeReporter{}
			s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, reporter)

			_, err := tc.move(s)
			if !errors.Is(err, common.ErrorIllegalTransition) {
				t.Fatalf("want ErrorIllegalTransition even for admin, got %v", err)
			}
			if len(reporter.suspicious) != 1 {
				t.Fatalf("illegal move must be reported as suspicious, got %v", reporter.suspicious)
			}

			deal, _ := dealRepo.Get(context.Background(), "A1B2C3D4")
			if deal.Status != tc.from {
				t.Fatalf("status must not change, got %s", deal.Status)
			}
		})
	}
}

func TestTransition_DealNotFound(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, false)

	s := newDealService(t, db, &fakeRepoManager{d: newFakeDealsRepo()}, &fakeReporter{})

	_, err := s.Release(context.Background(), "MISSING1", Actor{UserID: 101})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

// The full happy path: create, fund, release. Terminal deals refuse any
// further move.
func TestLifecycle_FullScenario(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	expectTx(mock, true)  // SubmitPayment
	expectTx(mock, true)  // Release
	expectTx(mock, false) // Release again
	expectTx(mock, false) // late payment claim

	dealRepo := newFakeDealsRepo()
	payRepo := &fakePaymentsRepo{}
	reporter := &fakeReporter{}
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo, p: payRepo}, reporter)

	deal, err := s.Create(context.Background(), 101, validDescription, 2500, validTerms)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := s.SubmitPayment(context.Background(), deal.ID, 202, "upi", "UTR777"); err != nil {
		t.Fatalf("SubmitPayment error: %v", err)
	}

	released, err := s.Release(context.Background(), deal.ID, Actor{UserID: 101})
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if released.Status != models.DealStatusCompleted || !released.Status.Terminal() {
		t.Fatalf("deal must end completed and terminal, got %s", released.Status)
	}

	if _, err := s.Release(context.Background(), deal.ID, Actor{UserID: 101}); !errors.Is(err, common.ErrorIllegalTransition) {
		t.Fatalf("second release must be illegal, got %v", err)
	}
	if _, err := s.SubmitPayment(context.Background(), deal.ID, 203, "upi", ""); !errors.Is(err, common.ErrorIllegalTransition) {
		t.Fatalf("claim on a completed deal must be illegal, got %v", err)
	}

	payments, err := s.PaymentsByDeal(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("PaymentsByDeal error: %v", err)
	}
	if len(payments) != 1 || payments[0].ReferenceID != "UTR777" {
		t.Fatalf("unexpected payments: %+v", payments)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// Stats come straight from the store on every call, so two calls around a
// transition must disagree.
func TestStats_ReflectLatestState(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	expectTx(mock, true)

	dealRepo := newFakeDealsRepo(
		&models.Deal{ID: "DEAL0001", CreatorID: 101, Amount: 1000},
		&models.Deal{ID: "DEAL0002", CreatorID: 102, Amount: 2000, Status: models.DealStatusFunded},
	)
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	before, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if before.ActiveDeals != 2 || before.TotalActiveValue != 3000 {
		t.Fatalf("unexpected stats before: %+v", before)
	}

	if _, err := s.Release(context.Background(), "DEAL0002", Actor{UserID: 102}); err != nil {
		t.Fatalf("Release error: %v", err)
	}

	after, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if after.ActiveDeals != 1 || after.TotalActiveValue != 1000 || after.CompletedDeals != 1 {
		t.Fatalf("stats must reflect the release: %+v", after)
	}
	if after.TotalDeals != before.TotalDeals {
		t.Fatalf("total must not change on a transition")
	}
}

func TestPaymentPayload_Format(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	dealRepo := newFakeDealsRepo(&models.Deal{ID: "A1B2C3D4", CreatorID: 101, Amount: 1500})
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	payload, err := s.PaymentPayload(context.Background(), "A1B2C3D4")
	if err != nil {
		t.Fatalf("PaymentPayload error: %v", err)
	}
	if !strings.HasPrefix(payload, "upi://pay?") {
		t.Fatalf("unexpected scheme: %q", payload)
	}

	u, err := url.Parse(payload)
	if err != nil {
		t.Fatalf("payload must parse as a URL: %v", err)
	}
	q := u.Query()
	if q.Get("pa") != "escrow@upi" || q.Get("pn") != "Escrow Service" {
		t.Fatalf("unexpected payee params: %v", q)
	}
	if q.Get("am") != "1500.00" {
		t.Fatalf("amount must carry two decimals, got %q", q.Get("am"))
	}
	if q.Get("cu") != "INR" {
		t.Fatalf("unexpected currency: %q", q.Get("cu"))
	}
	if q.Get("tn") != "Escrow Deal A1B2C3D4" {
		t.Fatalf("unexpected note: %q", q.Get("tn"))
	}
}

func TestPaymentPayload_DealMissing(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newDealService(t, db, &fakeRepoManager{d: newFakeDealsRepo()}, &fakeReporter{})

	_, err := s.PaymentPayload(context.Background(), "MISSING1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestListByCreator_PassThrough(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	dealRepo := newFakeDealsRepo(
		&models.Deal{ID: "OLDDEAL1", CreatorID: 101, Amount: 1000},
		&models.Deal{ID: "NEWDEAL1", CreatorID: 101, Amount: 2000},
		&models.Deal{ID: "OTHER001", CreatorID: 202, Amount: 3000},
	)
	s := newDealService(t, db, &fakeRepoManager{d: dealRepo}, &fakeReporter{})

	got, err := s.ListByCreator(context.Background(), 101)
	if err != nil {
		t.Fatalf("ListByCreator error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "NEWDEAL1" || got[1].ID != "OLDDEAL1" {
		t.Fatalf("unexpected deals: %+v", got)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
