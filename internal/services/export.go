package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-engine/internal/grading"
	"github.com/SAP-F-2025/exam-engine/internal/models"
)

const (
	resultsSheet    = "Results"
	terminatedSheet = "Terminated"
)

var exportHeader = []interface{}{
	"Rank", "Student ID", "Student Name", "Class", "Section", "Status",
	"Obtained Marks", "Total Marks", "Percentage", "Passed", "Time Taken (min)", "Submitted At",
}

// ExportCohort applies the same access rules as CohortResults.
func (s *resultService) ExportCohort(ctx context.Context, examID uint, filter models.CohortFilter, staff models.Principal, w io.Writer) error {
	cohort, err := s.CohortResults(ctx, examID, filter, staff)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "exam_id", examID, "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeCohortSheet(f, resultsSheet, cohort.Ranked); err != nil {
		return err
	}
	if len(cohort.Terminated) > 0 {
		if _, err := f.NewSheet(terminatedSheet); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		if err := writeCohortSheet(f, terminatedSheet, cohort.Terminated); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Cohort results exported",
		"exam_id", examID,
		"user_id", staff.ID,
		"rows", len(cohort.Ranked)+len(cohort.Terminated))
	return nil
}

func writeCohortSheet(f *excelize.File, sheet string, rows []models.CohortResultRow) error {
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		var rank interface{}
		if r.Rank > 0 {
			rank = r.Rank
		}
		submittedAt := ""
		if r.SubmittedAt != nil {
			submittedAt = r.SubmittedAt.UTC().Format(time.RFC3339)
		}

		values := []interface{}{
			rank, r.StudentID, r.StudentName, r.ClassID, r.SectionID, string(r.Status),
			r.ObtainedMarks, r.TotalMarks, grading.RoundPercentage(r.Percentage), r.IsPassed, r.TimeTakenMinutes, submittedAt,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}
