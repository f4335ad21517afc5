package services

import (
	"bytes"
	"fmt"
	"law_consult_app/models"

	"github.com/xuri/excelize/v2"
)

const consultationsSheet = "Consultations"

var consultationExportHeaders = []string{
	"ID", "Date", "Time", "Status", "Lawyer", "Client", "Email", "Phone",
	"Practice Area", "Case Description", "Cancellation Reason", "Source", "Created At",
}

// ExportConsultations writes consultations to an xlsx workbook.
// An empty list returns ErrNoMatchingRecords so callers can report it distinctly.
func ExportConsultations(consultations []models.Consultation) (*bytes.Buffer, error) {
	if len(consultations) == 0 {
		return nil, ErrNoMatchingRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", consultationsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, header := range consultationExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(consultationsSheet, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(consultationExportHeaders), 1)
	f.SetCellStyle(consultationsSheet, "A1", lastHeader, headerStyle)
	f.SetColWidth(consultationsSheet, "A", "M", 20)
	f.SetColWidth(consultationsSheet, "J", "J", 60)

	for i, c := range consultations {
		lawyerName := ""
		if c.Lawyer != nil {
			lawyerName = c.Lawyer.Name
		}
		reason := ""
		if c.CancellationReason != nil {
			reason = *c.CancellationReason
		}

		values := []interface{}{
			c.ID, c.ConsultationDate, displayTime(c.ConsultationTime), c.Status, lawyerName,
			c.FullName, c.Email, c.Phone, c.PracticeArea, c.CaseDescription, reason, c.Source,
			c.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(consultationsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}
