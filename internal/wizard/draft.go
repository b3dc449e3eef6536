// Package wizard implements the six-step receiver registration flow:
// ordered steps with per-step validation, a draft held across steps and
// a single backend submission at the end.
package wizard

// Draft accumulates the registration fields across wizard steps. It
// lives only for the duration of the wizard, optionally mirrored to
// local storage for resilience, and is discarded after submit.
type Draft struct {
	// Step 1: patient info.
	PatientName string `json:"patient_name"`
	PatientAge  int    `json:"patient_age"`
	BloodGroup  string `json:"blood_group"`

	// Step 2: contact info.
	ContactName string `json:"contact_name"`
	Mobile      string `json:"mobile"`
	Email       string `json:"email"`

	// Step 3: hospital info.
	HospitalName string `json:"hospital_name"`
	HospitalCity string `json:"hospital_city"`
	Ward         string `json:"ward,omitempty"`

	// Step 4: account credentials.
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`

	// Step 5: optional medical info.
	MedicalCondition string `json:"medical_condition,omitempty"`
	Medications      string `json:"medications,omitempty"`

	// Step 6: terms.
	TermsAccepted bool `json:"terms_accepted"`
}

// EmergencyRequest is the reduced-field fast path that bypasses the
// wizard entirely.
type EmergencyRequest struct {
	PatientName  string `json:"patient_name"`
	BloodGroup   string `json:"blood_group"`
	ContactName  string `json:"contact_name"`
	Mobile       string `json:"mobile"`
	HospitalName string `json:"hospital_name"`
}
