package access

import (
	"errors"
	"fmt"
)

// Capability is a named permission grant.
type Capability string

const (
	CanMarkReturned Capability = "catalog.can_mark_returned"
	CanLoanBook     Capability = "catalog.can_loan_book"
	AddAuthor       Capability = "catalog.add_author"
	ChangeAuthor    Capability = "catalog.change_author"
	DeleteAuthor    Capability = "catalog.delete_author"
	AddBook         Capability = "catalog.add_book"
	ChangeBook      Capability = "catalog.change_book"
	DeleteBook      Capability = "catalog.delete_book"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
)

// Librarian is the full capability set handed to library staff.
func Librarian() []Capability {
	return []Capability{
		CanMarkReturned, CanLoanBook,
		AddAuthor, ChangeAuthor, DeleteAuthor,
		AddBook, ChangeBook, DeleteBook,
	}
}

// Identity is the caller of an operation. The zero value is anonymous.
type Identity struct {
	Username     string
	Capabilities []Capability
}

func Anonymous() Identity {
	return Identity{}
}

func (i Identity) Authenticated() bool {
	return i.Username != ""
}

func (i Identity) Has(c Capability) bool {
	if !i.Authenticated() {
		return false
	}
	for _, have := range i.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func RequireAuthenticated(i Identity) error {
	if !i.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// Require fails unless i is signed in and holds every capability in caps.
func Require(i Identity, caps ...Capability) error {
	if err := RequireAuthenticated(i); err != nil {
		return err
	}
	for _, c := range caps {
		if !i.Has(c) {
			return fmt.Errorf("%w: %s lacks %s", ErrForbidden, i.Username, c)
		}
	}
	return nil
}
