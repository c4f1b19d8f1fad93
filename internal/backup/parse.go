package backup

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// MalformedError carries every validation message for a rejected backup.
// It matches types.ErrMalformedBackup under errors.Is.
type MalformedError struct {
	Errors []string
}

func (e *MalformedError) Error() string {
	return "invalid backup file:\n" + strings.Join(e.Errors, "\n")
}

// Unwrap ties the error to its category.
func (e *MalformedError) Unwrap() error {
	return types.ErrMalformedBackup
}

// Parse validates raw bytes and decodes them into a Document only when
// they are valid.
func Parse(raw []byte) (*Document, error) {
	res := Validate(raw)
	if !res.Valid {
		return nil, &MalformedError{Errors: res.Errors}
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding backup: %w", types.ErrMalformedBackup, err)
	}
	return &doc, nil
}
