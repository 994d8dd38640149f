package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

// CoverageFilter selects rows of the coverage report. The empty filter and
// "ALL" keep every row.
type CoverageFilter string

// CoverageAll keeps every row of the coverage report.
const CoverageAll CoverageFilter = "ALL"

// ParseCoverageFilter normalizes a filter supplied by a caller.
func ParseCoverageFilter(value string) (CoverageFilter, error) {
	switch filter := CoverageFilter(strings.ToUpper(strings.TrimSpace(value))); filter {
	case "", CoverageAll:
		return CoverageAll, nil
	case CoverageFilter(CoverageLow), CoverageFilter(CoverageFull), CoverageFilter(CoverageOK):
		return filter, nil
	}
	vErr := &ValidationError{}
	vErr.add("status", "deve ser ALL, LOW, FULL ou OK")
	return "", vErr
}

func (f CoverageFilter) keeps(status CoverageStatus) bool {
	return f == "" || f == CoverageAll || CoverageStatus(f) == status
}

// ReportService builds the administrative reports of a month.
type ReportService struct {
	availability *AvailabilityService
	selections   SelectionRepository
	ministers    MinisterRepository
	logger       *slog.Logger
}

// NewReportService constructs a report service.
func NewReportService(availability *AvailabilityService, selections SelectionRepository, ministers MinisterRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		availability: availability,
		selections:   selections,
		ministers:    ministers,
		logger:       defaultLogger(logger),
	}
}

// Coverage lists every active mass of the month with its fill status.
func (s *ReportService) Coverage(ctx context.Context, principal Principal, year, month int, filter CoverageFilter) ([]CoverageRow, error) {
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.availability == nil {
		return nil, fmt.Errorf("availability service not configured")
	}

	occupancy, err := s.availability.Occupancy(ctx, year, month)
	if err != nil {
		serviceLogger(ctx, s.logger, "ReportService", "Coverage", "year", year, "month", month).
			ErrorContext(ctx, "failed to build coverage report", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	rows := make([]CoverageRow, 0, len(occupancy.Entries))
	for _, entry := range occupancy.Entries {
		status := coverageStatus(entry)
		if filter.keeps(status) {
			rows = append(rows, CoverageRow{OccupancyEntry: entry, Status: status})
		}
	}
	return rows, nil
}

func coverageStatus(entry OccupancyEntry) CoverageStatus {
	switch {
	case entry.Current < entry.MinRequired:
		return CoverageLow
	case entry.Current >= entry.MaxAllowed:
		return CoverageFull
	}
	return CoverageOK
}

// MinisterSummary counts the selections of every minister with at least one
// selection in the month, busiest first.
func (s *ReportService) MinisterSummary(ctx context.Context, principal Principal, year, month int) ([]MinisterSummary, error) {
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	if s.selections == nil || s.ministers == nil {
		return nil, fmt.Errorf("report repositories not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ReportService", "MinisterSummary", "year", year, "month", month)

	m := time.Month(month)
	counts, err := s.selections.SummarizeMinisters(ctx, scheduler.FirstOfMonth(year, m), scheduler.LastOfMonth(year, m))
	if err != nil {
		err = persistenceError(err)
		logger.ErrorContext(ctx, "failed to summarize ministers", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	ministers, err := s.ministers.ListMinisters(ctx)
	if err != nil {
		err = mapMinisterRepoError(err)
		logger.ErrorContext(ctx, "failed to list ministers", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	names := make(map[string]string, len(ministers))
	for _, minister := range ministers {
		names[minister.ID] = minister.Name
	}

	summaries := make([]MinisterSummary, 0, len(counts))
	for _, count := range counts {
		summary := MinisterSummary{
			MinisterID: count.MinisterID,
			Name:       names[count.MinisterID],
			Regular:    count.Regular,
			Extras:     count.Extras,
		}
		if summary.Total() > 0 {
			summaries = append(summaries, summary)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Total() != b.Total() {
			return a.Total() > b.Total()
		}
		if !strings.EqualFold(a.Name, b.Name) {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.MinisterID < b.MinisterID
	})
	return summaries, nil
}

// Availability lists the masses of the month, or of day when it is not empty,
// each with the ministers who committed availability for it. Masses follow the
// occupancy order and ministers are ordered by name.
func (s *ReportService) Availability(ctx context.Context, principal Principal, year, month int, day string) ([]MassAvailability, error) {
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	if s.availability == nil || s.selections == nil {
		return nil, fmt.Errorf("report repositories not configured")
	}

	m := time.Month(month)
	from, to := scheduler.FirstOfMonth(year, m), scheduler.LastOfMonth(year, m)
	var only scheduler.Date
	if day = strings.TrimSpace(day); day != "" {
		parsed, err := scheduler.ParseDate(day)
		vErr := &ValidationError{}
		switch {
		case err != nil:
			vErr.add("date", "data inválida, use AAAA-MM-DD")
		case parsed.Before(from) || to.Before(parsed):
			vErr.add("date", "deve pertencer ao mês informado")
		}
		if vErr.HasErrors() {
			return nil, vErr
		}
		only, from, to = parsed, parsed, parsed
	}

	logger := serviceLogger(ctx, s.logger, "ReportService", "Availability", "year", year, "month", month, "date", day)

	occupancy, err := s.availability.Occupancy(ctx, year, month)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load occupancy", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	available, err := s.selections.ListAvailable(ctx, from, to)
	if err != nil {
		err = persistenceError(err)
		logger.ErrorContext(ctx, "failed to list available ministers", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	byTarget := make(map[scheduler.Target][]MinisterRef)
	for _, row := range available {
		byTarget[row.Target] = append(byTarget[row.Target], MinisterRef{ID: row.MinisterID, Name: row.Name})
	}
	for _, refs := range byTarget {
		sort.SliceStable(refs, func(i, j int) bool {
			if !strings.EqualFold(refs[i].Name, refs[j].Name) {
				return strings.ToLower(refs[i].Name) < strings.ToLower(refs[j].Name)
			}
			return refs[i].ID < refs[j].ID
		})
	}

	masses := make([]MassAvailability, 0, len(occupancy.Entries))
	for _, entry := range occupancy.Entries {
		if !only.IsZero() && entry.Date != only {
			continue
		}
		masses = append(masses, MassAvailability{OccupancyEntry: entry, Ministers: byTarget[entry.Target]})
	}
	return masses, nil
}
