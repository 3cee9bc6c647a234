package enums

import (
	"fmt"
	"strings"
)

// ReferenceType names the registry entity an asset or allocation belongs to.
type ReferenceType string

const (
	ReferenceTypeClinic       ReferenceType = "clinic"
	ReferenceTypeDentist      ReferenceType = "dentist"
	ReferenceTypeReceptionist ReferenceType = "receptionist"
	ReferenceTypeSupplier     ReferenceType = "supplier"
	ReferenceTypePatient      ReferenceType = "patient"
	ReferenceTypeBranch       ReferenceType = "branch"
)

var validReferenceTypes = []ReferenceType{
	ReferenceTypeClinic,
	ReferenceTypeDentist,
	ReferenceTypeReceptionist,
	ReferenceTypeSupplier,
	ReferenceTypePatient,
	ReferenceTypeBranch,
}

// String implements fmt.Stringer.
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType normalizes case and converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReferenceTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
