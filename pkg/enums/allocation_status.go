package enums

import (
	"fmt"
	"strings"
)

// AllocationStatus labels an asset allocation. Transitions between labels are not enforced.
type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "Allocated"
	AllocationStatusReturned  AllocationStatus = "Returned"
	AllocationStatusLost      AllocationStatus = "Lost"
	AllocationStatusDamaged   AllocationStatus = "Damaged"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusAllocated,
	AllocationStatusReturned,
	AllocationStatusLost,
	AllocationStatusDamaged,
}

// String implements fmt.Stringer.
func (s AllocationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AllocationStatus.
func (s AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAllocationStatus converts raw input into an AllocationStatus, ignoring case.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}
