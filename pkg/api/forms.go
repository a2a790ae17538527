package api

import (
	"strings"
	"time"

	"locallibrary/pkg/catalog"
	"locallibrary/pkg/workflow"
)

// loanForm is the body of the renew and change-status operations.
type loanForm struct {
	DueBack  string `form:"due_back" json:"due_back"`
	Status   string `form:"status" json:"status" binding:"required,status_code"`
	Borrower string `form:"borrower" json:"borrower" binding:"max=80"`
}

func (f loanForm) proposal() (workflow.Proposal, workflow.ValidationErrors) {
	var errs workflow.ValidationErrors
	due, err := workflow.ParseDate(f.DueBack)
	if err != nil {
		errs = append(errs, workflow.InvalidDate())
	}
	status, err := workflow.ParseStatus(f.Status)
	if err != nil {
		errs = append(errs, workflow.InvalidStatus())
	}
	return workflow.Proposal{
		DueBack:  due,
		Status:   status,
		Borrower: optional(f.Borrower),
	}, errs
}

func (f loanForm) echo() map[string]any {
	return map[string]any{
		workflow.FieldDueBack:  f.DueBack,
		workflow.FieldStatus:   f.Status,
		workflow.FieldBorrower: f.Borrower,
	}
}

type bookForm struct {
	Title   string `form:"title" json:"title" binding:"required,max=200"`
	Summary string `form:"summary" json:"summary" binding:"max=1000"`
	ISBN    string `form:"isbn" json:"isbn" binding:"required,max=13,number"`
	Author  *uint  `form:"author" json:"author"`
	Genres  []uint `form:"genre" json:"genre"`
}

func (f bookForm) input() catalog.BookInput {
	author := f.Author
	if author != nil && *author == 0 {
		author = nil
	}
	return catalog.BookInput{
		Title:    strings.TrimSpace(f.Title),
		Summary:  f.Summary,
		ISBN:     strings.TrimSpace(f.ISBN),
		AuthorID: author,
		GenreIDs: f.Genres,
	}
}

func (f *bookForm) echo() map[string]any {
	return map[string]any{
		"title":   f.Title,
		"summary": f.Summary,
		"isbn":    f.ISBN,
		"author":  f.Author,
		"genre":   f.Genres,
	}
}

type authorForm struct {
	FirstName   string `form:"first_name" json:"first_name" binding:"required,max=100"`
	LastName    string `form:"last_name" json:"last_name" binding:"required,max=100"`
	DateOfBirth string `form:"date_of_birth" json:"date_of_birth"`
	DateOfDeath string `form:"date_of_death" json:"date_of_death"`
}

func (f authorForm) input() (catalog.AuthorInput, map[string]string) {
	errs := map[string]string{}
	parse := func(field, value string) *time.Time {
		d, err := workflow.ParseDate(value)
		if err != nil {
			errs[field] = workflow.InvalidDate().Message
		}
		return d
	}
	in := catalog.AuthorInput{
		FirstName:   strings.TrimSpace(f.FirstName),
		LastName:    strings.TrimSpace(f.LastName),
		DateOfBirth: parse("date_of_birth", f.DateOfBirth),
		DateOfDeath: parse("date_of_death", f.DateOfDeath),
	}
	if in.DateOfBirth != nil && in.DateOfDeath != nil && in.DateOfDeath.Before(*in.DateOfBirth) {
		errs["date_of_death"] = "Date of death is before date of birth."
	}
	return in, errs
}

func (f *authorForm) echo() map[string]any {
	return map[string]any{
		"first_name":    f.FirstName,
		"last_name":     f.LastName,
		"date_of_birth": f.DateOfBirth,
		"date_of_death": f.DateOfDeath,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
