package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
)

// RenderAuditText prints an audit report grouped by severity, errors first.
func RenderAuditText(w io.Writer, r *service.AuditReport) error {
	status := "PASS"
	if r.Errors > 0 {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Invariant audit: %s\n", status)
	fmt.Fprintf(w, "  user:     %s\n", r.UserID)
	fmt.Fprintf(w, "  checked:  %d entries at %s\n", r.EntriesChecked, r.CheckedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  errors:   %d\n", r.Errors)
	fmt.Fprintf(w, "  warnings: %d\n", r.Warnings)

	if len(r.Violations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tINVARIANT\tENTRY\tDETAILS")
	for _, sev := range []domain.Severity{domain.SeverityError, domain.SeverityWarning} {
		for _, v := range r.Violations {
			if v.Severity != sev {
				continue
			}
			entry := "-"
			if v.EntryID != nil {
				entry = v.EntryID.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.Invariant, entry, v.Details)
		}
	}
	return tw.Flush()
}

func RenderEntryText(w io.Writer, e *domain.EntryIR) error {
	fmt.Fprintf(w, "entry %s (v%d)\n", e.ID, e.CompilerFlags.CompilationVersion)
	fmt.Fprintf(w, "  knowledge:  %s (%.2f, %s)\n", e.KnowledgeType, e.Confidence, e.CertaintySource)
	fmt.Fprintf(w, "  canon:      %s\n", e.Canon.Status)
	fmt.Fprintf(w, "  content:    %s\n", e.Content)
	if len(e.Entities) > 0 {
		names := make([]string, 0, len(e.Entities))
		for _, ent := range e.Entities {
			names = append(names, ent.Name)
		}
		fmt.Fprintf(w, "  entities:   %s\n", strings.Join(names, ", "))
	}
	if len(e.Themes) > 0 {
		themes := make([]string, 0, len(e.Themes))
		for _, t := range e.Themes {
			themes = append(themes, t.Theme)
		}
		fmt.Fprintf(w, "  themes:     %s\n", strings.Join(themes, ", "))
	}
	_, err := fmt.Fprintf(w, "  reflector:  %s\n", service.Render(domain.Reflector, e))
	return err
}

func RenderIncrementalText(w io.Writer, r *service.IncrementalResult) error {
	_, err := fmt.Fprintf(w, "affected %d, recompiled %d, skipped %d, failed %d, deferred %d\n",
		r.Affected, r.Recompiled, r.Skipped, r.Failed, r.Deferred)
	return err
}

func RenderBeliefsText(w io.Writer, beliefs []domain.BeliefEvolution) error {
	if len(beliefs) == 0 {
		_, err := fmt.Fprintln(w, "no beliefs tracked")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTREND\tDRIFT\tPOINTS\tSTATEMENT")
	for _, b := range beliefs {
		fmt.Fprintf(tw, "%s\t%s\t%+.2f\t%d\t%s\n", b.BeliefKey, b.Trend, b.Drift, len(b.History), b.Statement)
	}
	return tw.Flush()
}

func RenderDiffsText(w io.Writer, diffs []domain.NarrativeDiff) error {
	if len(diffs) == 0 {
		_, err := fmt.Fprintln(w, "no narrative shifts detected")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tTYPE\tBEFORE\tAFTER\tMAGNITUDE")
	for _, d := range diffs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", d.SubjectName, d.DiffType, d.Before, d.After, d.Magnitude)
	}
	return tw.Flush()
}
