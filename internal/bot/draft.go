package bot

import (
	"errors"
	"strings"
	"sync"

	"github.com/smile200420ff/Main-bot/internal/security"
)

// DealDraft is a deal being composed: parsed from the user's message and
// held until the confirmation button commits or discards it.
type DealDraft struct {
	Description string
	Amount      float64
	Terms       string
}

// ParseDealDraft parses the one-message deal form
//
//	description | amount | terms
//
// The amount part accepts the same spellings as manual input: thousands
// separators and a leading ₹ are fine.
func ParseDealDraft(text string) (DealDraft, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return DealDraft{}, errors.New("send three parts separated by | — description | amount | terms")
	}

	amount, ok := security.ParseAmount(parts[1])
	if !ok {
		return DealDraft{}, errors.New("that amount doesn't look right — try something like 5000 or ₹5,000")
	}

	return DealDraft{
		Description: strings.TrimSpace(parts[0]),
		Amount:      amount,
		Terms:       strings.TrimSpace(parts[2]),
	}, nil
}

// draftStore keeps at most one draft per user. A nil entry means the bot
// has prompted and is waiting for the user's form message.
type draftStore struct {
	mu     sync.Mutex
	drafts map[int64]*DealDraft
}

func newDraftStore() *draftStore {
	return &draftStore{drafts: make(map[int64]*DealDraft)}
}

// begin marks the user as composing a deal, replacing any previous draft.
func (s *draftStore) begin(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = nil
}

// active reports whether the user is anywhere in the creation dialog.
func (s *draftStore) active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drafts[userID]
	return ok
}

// save stores the parsed draft for the confirmation step.
func (s *draftStore) save(userID int64, d DealDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = &d
}

// pending returns the draft awaiting confirmation, if there is one.
func (s *draftStore) pending(userID int64) (DealDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[userID]
	if !ok || d == nil {
		return DealDraft{}, false
	}
	return *d, true
}

// clear ends the creation dialog for the user.
func (s *draftStore) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}
