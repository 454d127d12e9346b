package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/lumenhotels/onboarding-app/models"
)

// Form types with stored PDF artifacts.
var artifactForms = map[string]string{
	"i9_section1": "Form I-9 Section 1 - Employment Eligibility Verification",
	"i9_section2": "Form I-9 Section 2 - Employer Review and Verification",
	"w4_form":     "Form W-4 - Employee's Withholding Certificate",
}

// HasFormArtifact reports whether completing stepID produces a PDF.
func HasFormArtifact(stepID string) bool {
	_, ok := artifactForms[stepID]
	return ok
}

// DocumentService renders completed federal-form data to PDF artifacts on
// disk. Field mapping onto the official templates happens downstream; the
// stored artifact is the flat field record kept with the session.
type DocumentService struct {
	Dir string
}

func NewDocumentService(dir string) *DocumentService {
	if dir == "" {
		dir = filepath.Join("storage", "forms")
	}
	return &DocumentService{Dir: dir}
}

// GenerateFormArtifact renders fields for formType and writes the PDF.
// Returns the stored file path for the session's artifact map.
func (ds *DocumentService) GenerateFormArtifact(formType string, employeeID uint, fields models.JSONMap) (string, error) {
	title, ok := artifactForms[formType]
	if !ok {
		return "", fmt.Errorf("no artifact defined for form %s", formType)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Employee #%d - generated %s", employeeID, time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pdf.SetFont("Helvetica", "", 10)
	for _, k := range keys {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 7, k, "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, fmt.Sprintf("%v", fields[k]), "B", 1, "L", false, 0, "")
	}

	if err := os.MkdirAll(ds.Dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d_%s.pdf", formType, employeeID, uuid.NewString()[:8])
	path := filepath.Join(ds.Dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", err
	}
	return path, nil
}
