package model

import "time"

// DefaultFormType is the form type recorded for uploaded inspection PDFs.
const DefaultFormType = "inspection"

// Submission is a persisted inspection record.
type Submission struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	FileName      string          `json:"fileName"`
	FormType      string          `json:"formType"`
	PDFStorageKey string          `json:"pdfStorageKey,omitempty"`
	Data          InspectionData  `json:"data"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Index         SubmissionIndex `json:"index"`
}

// SubmissionIndex holds denormalized copies of header fields for lookup.
type SubmissionIndex struct {
	FacilityName   string        `json:"facilityName"`
	PermitNumber   string        `json:"permitNumber"`
	InspectionDate string        `json:"inspectionDate"`
	InspectorName  string        `json:"inspectorName"`
	OverallStatus  OverallStatus `json:"overallStatus"`
}

// IndexOf derives the denormalized index columns from data.
func IndexOf(d *InspectionData) SubmissionIndex {
	return SubmissionIndex{
		FacilityName:   d.FacilityName,
		PermitNumber:   d.PermitNumber,
		InspectionDate: d.InspectionDate,
		InspectorName:  d.InspectorName,
		OverallStatus:  d.OverallStatus,
	}
}

// NewSubmission carries the inputs of a create call.
type NewSubmission struct {
	OwnerID       string
	FileName      string
	FormType      string
	PDFStorageKey string
	Data          *InspectionData
}

// SubmissionFilter specifies criteria for listing submissions.
type SubmissionFilter struct {
	OwnerID       string        `json:"owner_id,omitempty"`
	FacilityName  string        `json:"facility_name,omitempty"`
	OverallStatus OverallStatus `json:"overall_status,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	Offset        int           `json:"offset,omitempty"`
}
