package references

import (
	"strings"

	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
)

// Filter selects the rows owned by one reference entity.
type Filter struct {
	Type string
	ID   string
}

// IsZero reports whether neither field was supplied.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Type) == "" && strings.TrimSpace(f.ID) == ""
}

// Normalize lower-cases the type, trims the id and rejects unknown types or a missing id.
func (f Filter) Normalize() (Filter, error) {
	refType, err := enums.ParseReferenceType(f.Type)
	if err != nil {
		return Filter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference_type").
			WithDetails(map[string]any{"reference_type": f.Type})
	}
	id := strings.TrimSpace(f.ID)
	if id == "" {
		return Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "reference_id is required")
	}
	return Filter{Type: refType.String(), ID: id}, nil
}
