package http

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"litfunds/internal/analytics"
	"litfunds/internal/core"
	applog "litfunds/internal/log"
)

const recentLimit = 5

// userData is everything a signed-in page reads before aggregating.
type userData struct {
	Profile      core.Profile
	Budgets      []core.Budget
	Transactions []core.Transaction
}

// loadUserData reads profile, budgets and the transaction snapshot
// concurrently.
func (s *Server) loadUserData(ctx context.Context, userID string) (userData, error) {
	var d userData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.Profile(gctx, userID)
		d.Profile = p
		return err
	})
	g.Go(func() error {
		b, err := s.profiles.Budgets(gctx, userID)
		d.Budgets = b
		return err
	})
	g.Go(func() error {
		txs, err := s.transactions.Snapshot(gctx, userID)
		d.Transactions = txs
		return err
	})
	return d, g.Wait()
}

func (s *Server) layoutFor(p core.Profile, title, active string) layout {
	return layout{Title: title, DisplayName: p.DisplayName, Currency: p.Currency, Active: active}
}

type homePage struct {
	layout
	Summary analytics.Summary
	Recent  []core.Transaction
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.loadUserData(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to load home page data", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your data. Please try again.")
		return
	}

	start, end := analytics.PeriodRange(analytics.Month, s.now())
	s.render(w, r, http.StatusOK, "home.html", homePage{
		layout:  s.layoutFor(d.Profile, "Home", "home"),
		Summary: analytics.Summarize(d.Transactions, start, end, d.Budgets),
		Recent:  analytics.Recent(d.Transactions, recentLimit),
	})
}

type analyticsPage struct {
	layout
	Period  analytics.Period
	Periods []analytics.Period
	Summary analytics.Summary
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period := analytics.ParsePeriod(r.URL.Query().Get("period"))

	d, err := s.loadUserData(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to load analytics data", "error", err, applog.FieldPeriod, period)
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your data. Please try again.")
		return
	}

	start, end := analytics.PeriodRange(period, s.now())
	s.render(w, r, http.StatusOK, "analytics.html", analyticsPage{
		layout:  s.layoutFor(d.Profile, "Analytics", "analytics"),
		Period:  period,
		Periods: []analytics.Period{analytics.Week, analytics.Month, analytics.Year},
		Summary: analytics.Summarize(d.Transactions, start, end, d.Budgets),
	})
}

type profilePage struct {
	layout
	Profile    core.Profile
	Totals     analytics.Totals
	Count      int
	Budgets    []analytics.BudgetUsage
	Errors     FormErrors
	Saved      string
	Currencies []string
}

// profileView shows all-time totals next to this month's budget usage.
func (s *Server) profileView(d userData) profilePage {
	start, end := analytics.PeriodRange(analytics.Month, s.now())
	month := analytics.Summarize(d.Transactions, start, end, d.Budgets)
	return profilePage{
		layout:     s.layoutFor(d.Profile, "Profile", "profile"),
		Profile:    d.Profile,
		Totals:     analytics.ComputeTotals(d.Transactions),
		Count:      len(d.Transactions),
		Budgets:    month.Budgets,
		Errors:     FormErrors{},
		Currencies: []string{core.CurrencyGHS, core.CurrencyUSD},
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.loadUserData(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to load profile", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Failed to fetch profile.")
		return
	}
	page := s.profileView(d)
	page.Saved = r.URL.Query().Get("saved")
	s.render(w, r, http.StatusOK, "profile.html", page)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	userID := userIDFrom(ctx)

	_, err := s.profiles.UpdateProfile(ctx, userID, sanitizeInput(r.PostForm.Get("display_name")), r.PostForm.Get("currency"))
	if err != nil {
		s.rerenderProfile(w, r, FormErrors{"profile": validationMessage(err, "Failed to update profile.")}, err)
		return
	}
	http.Redirect(w, r, "/profile?saved=profile", http.StatusSeeOther)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	category, cents, errs := ParseBudgetForm(r.PostForm)
	if errs.Any() {
		s.rerenderProfile(w, r, errs, nil)
		return
	}
	if _, err := s.profiles.SetBudget(ctx, userIDFrom(ctx), category, cents); err != nil {
		s.rerenderProfile(w, r, FormErrors{"limit": validationMessage(err, "Failed to save budget.")}, err)
		return
	}
	http.Redirect(w, r, "/profile?saved=budget", http.StatusSeeOther)
}

// rerenderProfile shows the profile page again with form errors. A non
// validation cause is logged and answered with 500.
func (s *Server) rerenderProfile(w http.ResponseWriter, r *http.Request, errs FormErrors, cause error) {
	ctx := r.Context()
	status := http.StatusUnprocessableEntity
	if cause != nil && !isValidationError(cause) {
		applog.FromContext(ctx).ErrorContext(ctx, "Profile update failed", "error", cause)
		status = http.StatusInternalServerError
	}

	d, err := s.loadUserData(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to load profile", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Failed to fetch profile.")
		return
	}
	page := s.profileView(d)
	page.Errors = errs
	s.render(w, r, status, "profile.html", page)
}
