package payments

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smile200420ff/Main-bot/internal/models"
)

var paymentColumns = []string{"payment_id", "deal_id", "payer_id", "amount", "payment_method", "reference_id", "status", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func samplePaymentRow(id string, dealID string, payerID int64, created time.Time) []driver.Value {
	return []driver.Value{id, dealID, payerID, 1000.0, "upi", "UTR123456", "confirmed", created}
}

const insertQuery = `(?s)^INSERT\s+INTO\s+payments\s*\(payment_id,\s*deal_id,\s*payer_id,\s*amount,\s*payment_method,\s*reference_id,\s*status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQuery).
		WithArgs("6f1c94f2-0001-4000-8000-000000000001", "A1B2C3D4", int64(202), 1000.0, "upi", "UTR123456", models.PaymentStatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.Payment{
		ID:          "6f1c94f2-0001-4000-8000-000000000001",
		DealID:      "A1B2C3D4",
		PayerID:     202,
		Amount:      1000,
		Method:      "upi",
		ReferenceID: "UTR123456",
		Status:      models.PaymentStatusConfirmed,
	}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("unexpected payment id: %s", got.ID)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+payments`).
		WithArgs("6f1c94f2-0001-4000-8000-000000000001", "A1B2C3D4", int64(202), 1000.0, "upi", "", models.PaymentStatusPending).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Payment{
		ID:      "6f1c94f2-0001-4000-8000-000000000001",
		DealID:  "A1B2C3D4",
		PayerID: 202,
		Amount:  1000,
		Method:  "upi",
		Status:  models.PaymentStatusPending,
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCreate_DuplicateClaimsAppend(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// two claims against the same deal both insert; the log never deduplicates
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+payments`).
		WithArgs("6f1c94f2-0001-4000-8000-000000000001", "A1B2C3D4", int64(202), 1000.0, "upi", "UTR123456", models.PaymentStatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+payments`).
		WithArgs("6f1c94f2-0002-4000-8000-000000000002", "A1B2C3D4", int64(202), 1000.0, "upi", "UTR123456", models.PaymentStatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	first := models.Payment{
		ID:          "6f1c94f2-0001-4000-8000-000000000001",
		DealID:      "A1B2C3D4",
		PayerID:     202,
		Amount:      1000,
		Method:      "upi",
		ReferenceID: "UTR123456",
		Status:      models.PaymentStatusConfirmed,
	}
	second := first
	second.ID = "6f1c94f2-0002-4000-8000-000000000002"

	if _, err := repo.Create(context.Background(), &first); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	if _, err := repo.Create(context.Background(), &second); err != nil {
		t.Fatalf("second Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestListByDeal(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+payment_id,\s*deal_id,\s*payer_id,\s*amount,\s*payment_method,\s*reference_id,\s*status,\s*created_at\s+FROM\s+payments\s+WHERE\s+deal_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s*$`

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(paymentColumns).
		AddRow(samplePaymentRow("p-2", "A1B2C3D4", 202, now)...).
		AddRow(samplePaymentRow("p-1", "A1B2C3D4", 202, now.Add(-time.Hour))...)
	mock.ExpectQuery(q).
		WithArgs("A1B2C3D4").
		WillReturnRows(rows)

	got, err := repo.ListByDeal(context.Background(), "A1B2C3D4")
	if err != nil {
		t.Fatalf("ListByDeal error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p-2" || got[1].ID != "p-1" {
		t.Fatalf("unexpected payments: %+v", got)
	}
	if got[0].Status != models.PaymentStatusConfirmed {
		t.Fatalf("unexpected status: %s", got[0].Status)
	}
}

func TestListByPayer_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+payment_id,.*FROM\s+payments\s+WHERE\s+payer_id\s*=\s*\$1`

	mock.ExpectQuery(q).
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows(paymentColumns))

	got, err := repo.ListByPayer(context.Background(), 999)
	if err != nil {
		t.Fatalf("ListByPayer error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no payments, got %+v", got)
	}
}
