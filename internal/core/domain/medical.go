package domain

// Canonical field names, shared by the model prompt, validation and notifications.
const (
	FieldPatientFirstName = "patientFirstName"
	FieldPatientLastName  = "patientLastName"
	FieldPatientGender    = "patientGender"
	FieldPatientBirthdate = "patientBirthdate"
	FieldExaminationDate  = "examinationDate"
	FieldExaminationType  = "examinationType"
)

// ReasonInvalidExaminationType is reported instead of a field list when the
// extracted label does not resolve to a known examination type.
const ReasonInvalidExaminationType = "Invalid examination type"

// ExtractedFields is what the model read off the document. Absent values are "".
type ExtractedFields struct {
	PatientFirstName string `json:"patientFirstName"`
	PatientLastName  string `json:"patientLastName"`
	PatientGender    string `json:"patientGender"`
	PatientBirthdate string `json:"patientBirthdate"`
	ExaminationDate  string `json:"examinationDate"`
	ExaminationType  string `json:"examinationType"`
}

// Value returns the field by its canonical name.
func (f ExtractedFields) Value(field string) string {
	switch field {
	case FieldPatientFirstName:
		return f.PatientFirstName
	case FieldPatientLastName:
		return f.PatientLastName
	case FieldPatientGender:
		return f.PatientGender
	case FieldPatientBirthdate:
		return f.PatientBirthdate
	case FieldExaminationDate:
		return f.ExaminationDate
	case FieldExaminationType:
		return f.ExaminationType
	default:
		return ""
	}
}

type ProcessingStatus int

const (
	StatusResolved   ProcessingStatus = 1
	StatusIncomplete ProcessingStatus = 2
)

func (s ProcessingStatus) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// MedicalInfo is the outcome of processing one document.
// FolderName is set exactly when Status is StatusResolved.
type MedicalInfo struct {
	ExtractedFields
	FolderName         string           `json:"folderName"`
	Status             ProcessingStatus `json:"status"`
	MissingInformation []string         `json:"missingInformation"`
	UsedCategory       string           `json:"usedCategory,omitempty"`
}

type ExaminationType struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Code        string `json:"code" db:"code"`
	Coordonance string `json:"coordonance,omitempty" db:"coordonance"`
}

// SystemPromptCategory is the reserved category whose prompt is prepended to
// every category-specific prompt.
const SystemPromptCategory = "SYSTEM_PROMPT"

type DocumentCategory struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Prompt string `json:"prompt" db:"prompt"`
}

type CategoryDetection struct {
	Category   string `json:"category"`
	NoCategory bool   `json:"no_category"`
}
