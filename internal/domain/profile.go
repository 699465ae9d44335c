package domain

import (
	"fmt"
	"strings"
)

// Input domains of the intake form.
const (
	MinMaternalAge = 15
	MaxMaternalAge = 49
	MinParity      = 0
	MaxParity      = 15

	DefaultMaternalAge = 25
	DefaultParity      = 1
)

// PatientProfile is the seven-field intake form. It is never persisted by the assessment path.
type PatientProfile struct {
	Age            int            `json:"age"`
	Parity         int            `json:"parity"`
	LateInitiator  bool           `json:"late_initiator"`
	Education      EducationLevel `json:"education"`
	HasInsurance   bool           `json:"has_insurance"`
	EverGivenBirth bool           `json:"ever_given_birth"`
	MaritalStatus  MaritalStatus  `json:"marital_status"`
}

// Validate checks every field against its input domain and returns the first violation.
func (p PatientProfile) Validate() error {
	if p.Age < MinMaternalAge || p.Age > MaxMaternalAge {
		return NewValidationError("age",
			fmt.Sprintf("must be between %d and %d", MinMaternalAge, MaxMaternalAge), p.Age)
	}
	if p.Parity < MinParity || p.Parity > MaxParity {
		return NewValidationError("parity",
			fmt.Sprintf("must be between %d and %d", MinParity, MaxParity), p.Parity)
	}
	if !p.Education.IsValid() {
		return NewValidationError("education", "must be one of NONE, PRIMARY, SECONDARY, HIGHER", p.Education)
	}
	if !p.MaritalStatus.IsValid() {
		return NewValidationError("marital_status", "must be one of MARRIED, COHABITING, NOT_IN_UNION", p.MaritalStatus)
	}
	return nil
}

// IsFirstPregnancy reports a patient who has never given birth and has no recorded births.
func (p PatientProfile) IsFirstPregnancy() bool {
	return !p.EverGivenBirth && p.Parity == 0
}

// Key is a stable identity for the profile, used by caches and the outcome store.
func (p PatientProfile) Key() string {
	return fmt.Sprintf("a%d|p%d|l%t|e%s|i%t|b%t|m%s",
		p.Age, p.Parity, p.LateInitiator, p.Education, p.HasInsurance, p.EverGivenBirth, p.MaritalStatus)
}

// UnmarshalText lets JSON and config inputs use form labels as well as canonical values.
// Unrecognised values are kept verbatim so Validate can report them.
func (e *EducationLevel) UnmarshalText(text []byte) error {
	if lvl, ok := ParseEducationLevel(string(text)); ok {
		*e = lvl
		return nil
	}
	*e = EducationLevel(strings.TrimSpace(string(text)))
	return nil
}

// UnmarshalText mirrors EducationLevel.UnmarshalText.
func (m *MaritalStatus) UnmarshalText(text []byte) error {
	if st, ok := ParseMaritalStatus(string(text)); ok {
		*m = st
		return nil
	}
	*m = MaritalStatus(strings.TrimSpace(string(text)))
	return nil
}
