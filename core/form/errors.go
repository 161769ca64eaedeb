package form

import (
	"errors"
	"strings"
)

// ErrLoading is returned by Submit while related options are still being
// fetched.
var ErrLoading = errors.New("form is still loading related options")

// ValidationFailed describes one field that blocked submission.
type ValidationFailed struct {
	Field   string
	Label   string
	Message string
}

func (e *ValidationFailed) Error() string {
	return e.Message
}

// ValidationErrors collects every field failure of one submission, in
// field order.
type ValidationErrors []*ValidationFailed

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for a field, or "".
func (v ValidationErrors) For(field string) string {
	for _, e := range v {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}
