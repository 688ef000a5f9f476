package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/config"
	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/models"
	"github.com/smile200420ff/Main-bot/internal/repositories/repomanager"
	"github.com/smile200420ff/Main-bot/internal/security"
)

// dealIDRetries bounds regeneration attempts when a fresh deal ID collides
// with an existing row. The store's uniqueness constraint is the backstop.
const dealIDRetries = 3

// Actor identifies who is asking for a lifecycle change. Admin is resolved
// by the caller (the bot layer) against the configured admin handle.
type Actor struct {
	UserID int64
	Admin  bool
}

// SecurityReporter receives security-relevant service outcomes: rejected
// input and denied access count as failed attempts, forbidden lifecycle
// moves as suspicious activity. Satisfied by security.Monitor.
type SecurityReporter interface {
	FailedAttempt(userID int64, attemptType string)
	Suspicious(userID int64, activity string)
}

// DealService owns the deal lifecycle. It is the only writer of deal
// status: every transition is checked against the status table and the
// role rules here, inside a transaction that holds the deal row lock.
type DealService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	security     SecurityReporter
	upiAddress   string
	upiPayeeName string
}

// NewDealService constructs a DealService using repositories and config.
func NewDealService(db *sql.DB, m repomanager.RepositoryManager, reporter SecurityReporter, cfg *config.Config) *DealService {
	return &DealService{
		db:           db,
		repomanager:  m,
		security:     reporter,
		upiAddress:   cfg.UPIAddress,
		upiPayeeName: cfg.UPIPayeeName,
	}
}

// Create sanitizes and validates the input, then inserts a new deal in the
// created status under a fresh random ID. Validation failures are reported
// to the security monitor and wrapped around common.ErrorValidation with
// the failing rule's message.
func (s *DealService) Create(ctx context.Context, creatorID int64, description string, amount float64, terms string) (*models.Deal, error) {
	description = security.SanitizeText(description, security.DefaultMaxText)
	terms = security.SanitizeText(terms, security.DefaultMaxText)

	if ok, reason := models.ValidateDealInput(description, amount, terms); !ok {
		s.security.FailedAttempt(creatorID, "deal_validation")
		return nil, fmt.Errorf("%w: %s", common.ErrorValidation, reason)
	}

	repo := s.repomanager.Deals(s.db)
	for attempt := 0; attempt < dealIDRetries; attempt++ {
		id, err := security.NewDealID(security.DealIDLength)
		if err != nil {
			return nil, common.ErrorInternal
		}

		deal, err := repo.Create(ctx, &models.Deal{
			ID:          id,
			CreatorID:   creatorID,
			Description: description,
			Amount:      amount,
			Terms:       terms,
		})
		if errors.Is(err, common.ErrorAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error creating deal: %v", err)
		}
		return deal, nil
	}
	return nil, common.ErrorInternal
}

// SubmitPayment records a payer's claim that the deal has been paid and
// moves the deal to funded. The payment row and the status flip share one
// transaction, so a crash can not leave one without the other. Any user
// may fund a deal; only the created status accepts a claim.
func (s *DealService) SubmitPayment(ctx context.Context, dealID string, payerID int64, method, referenceID string) (*models.Payment, error) {
	var payment *models.Payment

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dealRepo := s.repomanager.Deals(tx)

		deal, err := dealRepo.GetForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		if !deal.Status.CanTransitionTo(models.DealStatusFunded) {
			s.security.Suspicious(payerID, fmt.Sprintf("payment claim on %s deal %s", deal.Status, deal.ID))
			return common.ErrorIllegalTransition
		}

		p := &models.Payment{
			ID:          uuid.NewString(),
			DealID:      deal.ID,
			PayerID:     payerID,
			Amount:      deal.Amount,
			Method:      method,
			ReferenceID: referenceID,
			Status:      models.PaymentStatusConfirmed,
		}
		if _, err := s.repomanager.Payments(tx).Create(ctx, p); err != nil {
			return fmt.Errorf("error recording payment: %v", err)
		}
		if err := dealRepo.UpdateStatus(ctx, deal.ID, models.DealStatusFunded); err != nil {
			return fmt.Errorf("error updating deal status: %v", err)
		}

		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Release moves a funded deal to completed. Triggered by the deal creator
// or the admin; on a disputed deal only the admin passes the role check,
// which is exactly the Resolve semantics.
func (s *DealService) Release(ctx context.Context, dealID string, actor Actor) (*models.Deal, error) {
	return s.transition(ctx, dealID, models.DealStatusCompleted, actor)
}

// Dispute moves a funded deal to disputed. Creator or admin.
func (s *DealService) Dispute(ctx context.Context, dealID string, actor Actor) (*models.Deal, error) {
	return s.transition(ctx, dealID, models.DealStatusDisputed, actor)
}

// Resolve closes a disputed deal as completed. Admin only.
func (s *DealService) Resolve(ctx context.Context, dealID string, actor Actor) (*models.Deal, error) {
	return s.transition(ctx, dealID, models.DealStatusCompleted, actor)
}

// Cancel moves a created or disputed deal to cancelled. Admin only.
func (s *DealService) Cancel(ctx context.Context, dealID string, actor Actor) (*models.Deal, error) {
	return s.transition(ctx, dealID, models.DealStatusCancelled, actor)
}

// transition applies one status move. The deal row stays locked from read
// to write, so two concurrent moves on the same deal serialize and the
// loser re-reads a status its move is no longer legal from. Legality is
// checked before the role: a forbidden move is rejected even for the
// admin, and reported as suspicious.
func (s *DealService) transition(ctx context.Context, dealID string, next models.DealStatus, actor Actor) (*models.Deal, error) {
	var deal *models.Deal

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Deals(tx)

		d, err := repo.GetForUpdate(ctx, dealID)
		if err != nil {
			return err
		}
		if !d.Status.CanTransitionTo(next) {
			s.security.Suspicious(actor.UserID, fmt.Sprintf("illegal transition %s -> %s on deal %s", d.Status, next, d.ID))
			return common.ErrorIllegalTransition
		}
		if !mayTrigger(d, next, actor) {
			s.security.FailedAttempt(actor.UserID, "deal_access")
			return common.ErrorAccessDenied
		}

		if err := repo.UpdateStatus(ctx, d.ID, next); err != nil {
			return fmt.Errorf("error updating deal status: %v", err)
		}

		d.Status = next
		deal = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// mayTrigger encodes who may request each lifecycle move: cancellation and
// dispute resolution are admin-only, release/dispute of a funded deal
// belong to the creator or the admin, and funding a created deal is open
// to any payer.
func mayTrigger(deal *models.Deal, next models.DealStatus, actor Actor) bool {
	switch {
	case next == models.DealStatusCancelled:
		return actor.Admin
	case deal.Status == models.DealStatusDisputed:
		return actor.Admin
	case deal.Status == models.DealStatusFunded:
		return actor.Admin || actor.UserID == deal.CreatorID
	default:
		return true
	}
}

// Get returns the deal or common.ErrorNotFound.
func (s *DealService) Get(ctx context.Context, dealID string) (*models.Deal, error) {
	repo := s.repomanager.Deals(s.db)
	return repo.Get(ctx, dealID)
}

// ListByCreator returns the user's deals, newest first.
func (s *DealService) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Deal, error) {
	repo := s.repomanager.Deals(s.db)
	return repo.ListByCreator(ctx, creatorID)
}

// List returns all deals, newest first, optionally filtered by status.
func (s *DealService) List(ctx context.Context, status models.DealStatus) ([]*models.Deal, error) {
	repo := s.repomanager.Deals(s.db)
	return repo.List(ctx, status)
}

// Stats computes the aggregate dashboard snapshot fresh on every call.
func (s *DealService) Stats(ctx context.Context) (*models.DealStats, error) {
	repo := s.repomanager.Deals(s.db)
	return repo.Stats(ctx)
}

// PaymentsByDeal returns payment claims recorded against the deal.
func (s *DealService) PaymentsByDeal(ctx context.Context, dealID string) ([]*models.Payment, error) {
	repo := s.repomanager.Payments(s.db)
	return repo.ListByDeal(ctx, dealID)
}

// PaymentsByPayer returns payment claims submitted by the user.
func (s *DealService) PaymentsByPayer(ctx context.Context, payerID int64) ([]*models.Payment, error) {
	repo := s.repomanager.Payments(s.db)
	return repo.ListByPayer(ctx, payerID)
}

// PaymentPayload builds the UPI deep link for funding the deal. The
// presentation layer renders the QR image from this string.
func (s *DealService) PaymentPayload(ctx context.Context, dealID string) (string, error) {
	repo := s.repomanager.Deals(s.db)
	deal, err := repo.Get(ctx, dealID)
	if err != nil {
		return "", err
	}

	v := url.Values{}
	v.Set("pa", s.upiAddress)
	v.Set("pn", s.upiPayeeName)
	v.Set("am", strconv.FormatFloat(deal.Amount, 'f', 2, 64))
	v.Set("cu", "INR")
	v.Set("tn", "Escrow Deal "+deal.ID)
	return "upi://pay?" + v.Encode(), nil
}
