package workflow

import (
	"sort"
	"strings"
	"time"
)

const (
	// RenewalPeriod is the due date offered by default when renewing.
	RenewalPeriod = 3 * 7 * 24 * time.Hour
	// MaxRenewalPeriod bounds how far ahead a renewal may push the due date.
	MaxRenewalPeriod = 4 * 7 * 24 * time.Hour
)

const DateLayout = "2006-01-02"

// Validation error codes reported for rejected proposals.
const (
	CodeRequired    = "required"
	CodeInvalid     = "invalid"
	CodeDateInPast  = "date_in_past"
	CodeDateTooFar  = "date_too_far"
	CodeBadStatus   = "invalid_choice"
	FieldDueBack    = "due_back"
	FieldStatus     = "status"
	FieldBorrower   = "borrower"
	msgRequired     = "This field is required."
	msgDateInPast   = "Invalid date - renewal in past"
	msgDateTooFar   = "Invalid date - renewal more than 4 weeks ahead"
	msgInvalidDate  = "Enter a valid date."
	msgInvalidState = "Select a valid choice."
)

// Proposal carries the three fields both workflow operations write together.
type Proposal struct {
	DueBack  *time.Time
	Status   Status
	Borrower *string
}

type FieldError struct {
	Field   string
	Code    string
	Message string
}

// ValidationErrors is returned for a proposal the caller may correct and resubmit.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields maps each rejected field to its message.
func (e ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

func (e ValidationErrors) Has(code string) bool {
	for _, fe := range e {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// Required builds the error reported when field is missing.
func Required(field string) FieldError {
	return FieldError{Field: field, Code: CodeRequired, Message: msgRequired}
}

// InvalidDate builds the error reported when a due date cannot be parsed.
func InvalidDate() FieldError {
	return FieldError{Field: FieldDueBack, Code: CodeInvalid, Message: msgInvalidDate}
}

// InvalidStatus builds the error reported for an unknown status code.
func InvalidStatus() FieldError {
	return FieldError{Field: FieldStatus, Code: CodeBadStatus, Message: msgInvalidState}
}

type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// Engine holds the status workflow rules. It never touches storage.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the current calendar date as midnight UTC.
func (e *Engine) Today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// RenewalDefaults proposes a due date three weeks out and keeps the
// instance's current status and borrower.
func (e *Engine) RenewalDefaults(current Proposal) Proposal {
	due := e.Today().Add(RenewalPeriod)
	return Proposal{
		DueBack:  &due,
		Status:   current.Status,
		Borrower: current.Borrower,
	}
}

// StatusChangeDefaults proposes returning the instance to the shelf.
func (e *Engine) StatusChangeDefaults() Proposal {
	return Proposal{Status: StatusAvailable}
}

// CheckRenewal accepts a due date strictly after today and at most four
// weeks ahead.
func (e *Engine) CheckRenewal(p Proposal) error {
	var errs ValidationErrors
	if !p.Status.Valid() {
		errs = append(errs, InvalidStatus())
	}
	today := e.Today()
	switch {
	case p.DueBack == nil:
		errs = append(errs, Required(FieldDueBack))
	case !dateOf(*p.DueBack).After(today):
		errs = append(errs, FieldError{Field: FieldDueBack, Code: CodeDateInPast, Message: msgDateInPast})
	case dateOf(*p.DueBack).After(today.Add(MaxRenewalPeriod)):
		errs = append(errs, FieldError{Field: FieldDueBack, Code: CodeDateTooFar, Message: msgDateTooFar})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CheckStatusChange only requires a legal status; any due date is accepted.
func (e *Engine) CheckStatusChange(p Proposal) error {
	if !p.Status.Valid() {
		return ValidationErrors{InvalidStatus()}
	}
	return nil
}

// RenewalTarget is where a successful renewal sends the librarian.
func (e *Engine) RenewalTarget() Listing {
	return ListingAllBorrowed
}

// StatusChangeTarget is keyed on the status the instance had before the
// change, not the one it was moved to.
func (e *Engine) StatusChangeTarget(original Status) Listing {
	return ListingFor(original)
}

// ParseDate parses a YYYY-MM-DD due date. Blank input means no date.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders a due date, or "" when unset.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
