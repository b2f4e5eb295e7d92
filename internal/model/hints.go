package model

import "slices"

// FieldHints is a partial set of header values supplied by the user or
// read from the PDF's embedded form, passed to extraction as context.
type FieldHints struct {
	FacilityName      string `json:"facilityName,omitempty" yaml:"facility_name,omitempty"`
	FacilityAddress   string `json:"facilityAddress,omitempty" yaml:"facility_address,omitempty"`
	PermitNumber      string `json:"permitNumber,omitempty" yaml:"permit_number,omitempty"`
	InspectionDate    string `json:"inspectionDate,omitempty" yaml:"inspection_date,omitempty"`
	InspectorName     string `json:"inspectorName,omitempty" yaml:"inspector_name,omitempty"`
	WeatherConditions string `json:"weatherConditions,omitempty" yaml:"weather_conditions,omitempty"`
}

// HintKey identifies one FieldHints member by its JSON name.
type HintKey string

const (
	HintFacilityName      HintKey = "facilityName"
	HintFacilityAddress   HintKey = "facilityAddress"
	HintPermitNumber      HintKey = "permitNumber"
	HintInspectionDate    HintKey = "inspectionDate"
	HintInspectorName     HintKey = "inspectorName"
	HintWeatherConditions HintKey = "weatherConditions"
)

// HintKeys is the ordered set of hint keys.
var HintKeys = []HintKey{
	HintFacilityName,
	HintFacilityAddress,
	HintPermitNumber,
	HintInspectionDate,
	HintInspectorName,
	HintWeatherConditions,
}

// IsHintKey reports whether k names a FieldHints member.
func IsHintKey(k HintKey) bool {
	return slices.Contains(HintKeys, k)
}

// Get returns the value stored under key.
func (h FieldHints) Get(key HintKey) string {
	switch key {
	case HintFacilityName:
		return h.FacilityName
	case HintFacilityAddress:
		return h.FacilityAddress
	case HintPermitNumber:
		return h.PermitNumber
	case HintInspectionDate:
		return h.InspectionDate
	case HintInspectorName:
		return h.InspectorName
	case HintWeatherConditions:
		return h.WeatherConditions
	}
	return ""
}

// Set stores value under key. Unknown keys are ignored.
func (h *FieldHints) Set(key HintKey, value string) {
	switch key {
	case HintFacilityName:
		h.FacilityName = value
	case HintFacilityAddress:
		h.FacilityAddress = value
	case HintPermitNumber:
		h.PermitNumber = value
	case HintInspectionDate:
		h.InspectionDate = value
	case HintInspectorName:
		h.InspectorName = value
	case HintWeatherConditions:
		h.WeatherConditions = value
	}
}

// IsEmpty reports whether no hint carries a value.
func (h FieldHints) IsEmpty() bool {
	return h == FieldHints{}
}

// PrefillResult is what the form-field matcher found in a PDF.
type PrefillResult struct {
	Hints        FieldHints `json:"hints"`
	HasAcroForm  bool       `json:"hasAcroForm"`
	AnyPrefilled bool       `json:"anyPrefilled"`
}

// AcroFormStatus describes the prefill outcome for display.
type AcroFormStatus string

const (
	AcroFormPending   AcroFormStatus = "pending"
	AcroFormNone      AcroFormStatus = "none"
	AcroFormEmpty     AcroFormStatus = "empty"
	AcroFormPrefilled AcroFormStatus = "prefilled"
)

// Status maps a prefill result onto an AcroFormStatus.
func (r PrefillResult) Status() AcroFormStatus {
	switch {
	case !r.HasAcroForm:
		return AcroFormNone
	case r.AnyPrefilled:
		return AcroFormPrefilled
	default:
		return AcroFormEmpty
	}
}
