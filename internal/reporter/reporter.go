package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/actionsum/devtrack/internal/config"
	"github.com/actionsum/devtrack/internal/models"
	"github.com/actionsum/devtrack/pkg/utils"
)

// Source is the read side of the store used for reports.
type Source interface {
	SummaryByType(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error)
	SummaryByProject(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error)
	SummaryByApp(ctx context.Context, start, end time.Time, excludeIdle bool) ([]models.Summary, error)
}

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   Source
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo Source) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(ctx context.Context, periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	excludeIdle := r.config.Report.ExcludeIdle

	// SQL does the SUM; derived fields are filled in here.
	byType, err := r.repo.SummaryByType(ctx, period.Start, period.End, excludeIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity type summary: %w", err)
	}
	byProject, err := r.repo.SummaryByProject(ctx, period.Start, period.End, excludeIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to get project summary: %w", err)
	}
	byApp, err := r.repo.SummaryByApp(ctx, period.Start, period.End, excludeIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}

	totalSeconds := fillDerived(byType)
	fillDerived(byProject)
	fillDerived(byApp)

	for i := range byProject {
		if byProject[i].Key == "" {
			byProject[i].Label = "(no project)"
		}
	}

	report := &models.Report{
		Period:       *period,
		ByType:       byType,
		ByProject:    byProject,
		ByApp:        byApp,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		GeneratedAt:  r.now(),
	}

	return report, nil
}

// fillDerived computes minutes, hours and percentages and returns the total.
func fillDerived(summaries []models.Summary) int64 {
	var totalSeconds int64
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}
	return totalSeconds
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	loc, err := r.config.Location()
	if err != nil {
		return nil, err
	}
	now := r.now().In(loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %s\n", utils.FormatDuration(report.TotalSeconds))

	if report.TotalSeconds == 0 {
		b.WriteString("\nNo activity recorded for this period.\n")
		return b.String()
	}

	writeSection(&b, "Activity", report.ByType)
	writeSection(&b, "Project", report.ByProject)
	writeSection(&b, "Application", report.ByApp)

	return b.String()
}

func writeSection(b *strings.Builder, title string, summaries []models.Summary) {
	if len(summaries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%-30s %12s %9s %9s\n", title, "Time", "Sessions", "Percent")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", 63))
	for _, s := range summaries {
		fmt.Fprintf(b, "%-30s %12s %9d %8.1f%%\n",
			utils.Truncate(s.Label, 30),
			utils.FormatDuration(s.TotalSeconds),
			s.SessionCount,
			s.Percentage)
	}
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
