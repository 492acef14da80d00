package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditReport struct {
	UserID         uuid.UUID          `json:"user_id" yaml:"user_id"`
	EntriesChecked int                `json:"entries_checked" yaml:"entries_checked"`
	Errors         int                `json:"errors" yaml:"errors"`
	Warnings       int                `json:"warnings" yaml:"warnings"`
	Violations     []domain.Violation `json:"violations" yaml:"violations"`
	CheckedAt      time.Time          `json:"checked_at" yaml:"checked_at"`
}

// InvariantAuditor runs the invariant battery over a user's entries. It is
// an audit, not a gate: violations are reported and logged.
type InvariantAuditor struct {
	entryStore domain.EntryStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewInvariantAuditor(es domain.EntryStore, logger *zap.Logger) *InvariantAuditor {
	return &InvariantAuditor{entryStore: es, logger: logger, now: time.Now}
}

func (a *InvariantAuditor) Audit(ctx context.Context, userID uuid.UUID) (*AuditReport, error) {
	entries, err := a.entryStore.ListByUser(ctx, userID, domain.ListEntriesOpts{IncludeDeprecated: true})
	if err != nil {
		return nil, fmt.Errorf("load entries for audit: %w", err)
	}

	report := &AuditReport{
		UserID:         userID,
		EntriesChecked: len(entries),
		Violations:     domain.CheckAllInvariants(entries),
		CheckedAt:      a.now().UTC(),
	}
	if report.Violations == nil {
		report.Violations = []domain.Violation{}
	}
	for _, v := range report.Violations {
		if v.Severity == domain.SeverityError {
			report.Errors++
		} else {
			report.Warnings++
		}
	}
	a.record(report.Violations)
	return report, nil
}

// Assert returns an *domain.InvariantError when any ERROR violation exists.
func (a *InvariantAuditor) Assert(ctx context.Context, userID uuid.UUID) error {
	entries, err := a.entryStore.ListByUser(ctx, userID, domain.ListEntriesOpts{IncludeDeprecated: true})
	if err != nil {
		return fmt.Errorf("load entries for audit: %w", err)
	}
	return domain.AssertInvariants(entries)
}

func (a *InvariantAuditor) Name() string { return "invariant_audit" }

// AfterCommit audits a freshly compiled entry. Violations are logged only.
func (a *InvariantAuditor) AfterCommit(ctx context.Context, e *domain.EntryIR) error {
	a.record(domain.CheckAllInvariants([]domain.EntryIR{*e}))
	return nil
}

func (a *InvariantAuditor) record(vs []domain.Violation) {
	for _, v := range vs {
		invariantViolations.WithLabelValues(string(v.Invariant), string(v.Severity)).Inc()
		fields := []zap.Field{
			zap.String("invariant", string(v.Invariant)),
			zap.String("details", v.Details),
		}
		if v.EntryID != nil {
			fields = append(fields, zap.String("entry_id", v.EntryID.String()))
		}
		if v.Severity == domain.SeverityError {
			a.logger.Error("invariant violated", fields...)
		} else {
			a.logger.Warn("invariant violated", fields...)
		}
	}
}
