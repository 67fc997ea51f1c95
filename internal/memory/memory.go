package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"litfunds/internal/core"
	"litfunds/internal/ports"
)

type session struct {
	userID    string
	expiresAt time.Time
}

// Store keeps everything in process memory. It is used for local
// development and tests; data is lost on restart.
type Store struct {
	mu       sync.Mutex
	txs      map[string]core.Transaction
	users    map[string]core.User // by normalized email
	sessions map[string]session
	profiles map[string]core.Profile
	budgets  map[string][]core.Budget
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		txs:      map[string]core.Transaction{},
		users:    map[string]core.User{},
		sessions: map[string]session{},
		profiles: map[string]core.Profile{},
		budgets:  map[string][]core.Budget{},
	}
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return core.Transaction{}, ports.ErrDuplicate
	}
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[tx.ID]
	if !ok || cur.UserID != tx.UserID {
		return ports.ErrNotFound
	}
	tx.CreatedAt = cur.CreatedAt
	s.txs[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txs[id]
	if !ok || cur.UserID != userID {
		return ports.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, ports.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListTransactionOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, tx := range s.txs {
		if !seen[tx.UserID] {
			seen[tx.UserID] = true
			ids = append(ids, tx.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	key := strings.ToLower(strings.TrimSpace(u.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return ports.ErrDuplicate
	}
	s.users[key] = u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return core.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) GetSession(_ context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", ports.ErrNotFound
	}
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, token)
		return "", ports.ErrNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, ports.ErrNotFound
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets[userID]...), nil
}

// SaveBudget inserts or replaces the budget of a normalized category.
func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	b.Category = core.NormalizeCategory(b.Category)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.budgets[b.UserID]
	for i := range list {
		if list[i].Category == b.Category {
			list[i] = b
			return nil
		}
	}
	s.budgets[b.UserID] = append(list, b)
	return nil
}

func (s *Store) Close() error { return nil }
