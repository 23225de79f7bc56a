package form

import (
	"fmt"

	"github.com/goliatone/go-connform/pkg/validation"
)

// SubmitError is returned when Submit runs against values that still carry
// validation findings.
type SubmitError struct {
	ServiceType string
	Issues      []validation.Issue
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("form: %q has %d validation issues", e.ServiceType, len(e.Issues))
}
