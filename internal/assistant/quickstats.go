package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/query"
)

// PlanSummary is the plan shown in the sidebar.
type PlanSummary struct {
	Type           string  `json:"type"`
	Deductible     float64 `json:"deductible"`
	OOPMax         float64 `json:"oop_max"`
	MonthlyPremium float64 `json:"monthly_premium"`
}

// TypeCount is the claim count for one claim type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Summary is the sidebar quick-stats view.
type Summary struct {
	Profile            session.Profile `json:"profile"`
	Plan               *PlanSummary    `json:"plan,omitempty"`
	DeductibleMet      float64         `json:"deductible_met"`
	DeductibleDisplay  string          `json:"deductible_display,omitempty"`
	DeductibleProgress float64         `json:"deductible_progress"`
	OOPSpent           float64         `json:"oop_spent"`
	OOPDisplay         string          `json:"oop_display,omitempty"`
	OOPProgress        float64         `json:"oop_progress"`
	ClaimsByType       []TypeCount     `json:"claims_by_type,omitempty"`
	// Available is false when the figures could not be loaded.
	Available bool `json:"available"`
}

var (
	spendRequest = query.Request{Metrics: []string{"deductible_met", "oop_spent"}}
	claimRequest = query.Request{
		Metrics: []string{"claims_by_type"},
		GroupBy: []query.GroupBy{{Name: "claim_type"}},
		OrderBy: []query.OrderBy{{Name: "claim_type"}},
	}
)

// QuickStats loads the sidebar figures through the same scoped execution path as Ask.
func (s *Service) QuickStats(ctx context.Context, sess *session.Session) (*Summary, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "assistant.QuickStats")
	defer span.End()

	summary := &Summary{Profile: sess.Profile}
	if plan := s.plan(ctx, sess); plan != nil {
		summary.Plan = &PlanSummary{
			Type:           plan.PlanType,
			Deductible:     plan.Deductible,
			OOPMax:         plan.OOPMax,
			MonthlyPremium: plan.MonthlyPremium,
		}
	}

	spend, err := s.run(ctx, sess, spendRequest)
	if err != nil {
		s.logger.WarnContext(ctx, "quick stats unavailable", "tenant_id", sess.TenantID, "error", err)
		return summary, nil
	}
	if len(spend.Rows) > 0 {
		row := spend.Rows[0]
		summary.DeductibleMet, _ = toFloat(row["deductible_met"])
		summary.OOPSpent, _ = toFloat(row["oop_spent"])
	}
	summary.DeductibleDisplay = format.Value("deductible_met", summary.DeductibleMet)
	summary.OOPDisplay = format.Value("oop_spent", summary.OOPSpent)
	if summary.Plan != nil {
		summary.DeductibleProgress = progress(summary.DeductibleMet, summary.Plan.Deductible)
		summary.OOPProgress = progress(summary.OOPSpent, summary.Plan.OOPMax)
	}

	claims, err := s.run(ctx, sess, claimRequest)
	if err != nil {
		s.logger.WarnContext(ctx, "quick stats unavailable", "tenant_id", sess.TenantID, "error", err)
		return summary, nil
	}
	for _, row := range claims.Rows {
		n, _ := toFloat(row["claims_by_type"])
		summary.ClaimsByType = append(summary.ClaimsByType, TypeCount{
			Type:  fmt.Sprint(row["claim_type"]),
			Count: int64(n),
		})
	}
	summary.Available = true
	return summary, nil
}

func (s *Service) run(ctx context.Context, sess *session.Session, req query.Request) (*query.Result, error) {
	scoped, err := s.cfg.Enforcer.Enforce(req, sess)
	if err != nil {
		return nil, err
	}
	out, err := s.cfg.Executor.Execute(ctx, scoped)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (s *Service) plan(ctx context.Context, sess *session.Session) *tenant.Plan {
	if s.cfg.Plans == nil || sess.Profile.PlanID == "" {
		return nil
	}
	plan, err := s.cfg.Plans.Plan(ctx, sess.Profile.PlanID)
	if err != nil {
		if !errors.Is(err, tenant.ErrPlanNotFound) {
			s.logger.WarnContext(ctx, "failed to load plan", "tenant_id", sess.TenantID, "error", err)
		}
		return nil
	}
	return plan
}

func progress(value, limit float64) float64 {
	if limit <= 0 || value <= 0 {
		return 0
	}
	if value >= limit {
		return 1
	}
	return value / limit
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
