package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"litfunds/internal/core"
	"litfunds/internal/ports"
)

type ProfileService struct {
	store ports.ProfileStore
}

func NewProfileService(store ports.ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Profile returns the user's profile, falling back to defaults when none
// was saved.
func (s *ProfileService) Profile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return core.Profile{UserID: userID, Currency: core.CurrencyGHS}, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if p.Currency == "" {
		p.Currency = core.CurrencyGHS
	}
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID, displayName, currency string) (core.Profile, error) {
	p := core.Profile{
		UserID:      userID,
		DisplayName: strings.TrimSpace(displayName),
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
	}
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile updated", "user_id", userID, "currency", p.Currency)
	return p, nil
}

func (s *ProfileService) Budgets(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SetBudget creates or replaces the limit for one category.
func (s *ProfileService) SetBudget(ctx context.Context, userID, category string, limitCents int64) (core.Budget, error) {
	b := core.Budget{
		UserID:   userID,
		Category: core.NormalizeCategory(category),
		Limit:    core.Money{Cents: limitCents},
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved", "user_id", userID, "category", b.Category, "limit_cents", limitCents)
	return b, nil
}
