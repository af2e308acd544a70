package domain

// RequiredFields lists the fields a document must carry, in reporting order.
var RequiredFields = []string{
	FieldPatientFirstName,
	FieldPatientLastName,
	FieldPatientGender,
	FieldPatientBirthdate,
	FieldExaminationDate,
	FieldExaminationType,
}

type ValidationResult struct {
	Valid         bool
	MissingFields []string
}

// Validate is a presence-only check; formats are not inspected.
func Validate(fields ExtractedFields) ValidationResult {
	missing := make([]string, 0, len(RequiredFields))
	for _, name := range RequiredFields {
		if fields.Value(name) == "" {
			missing = append(missing, name)
		}
	}
	return ValidationResult{
		Valid:         len(missing) == 0,
		MissingFields: missing,
	}
}
