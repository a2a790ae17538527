package models

import (
	"fmt"
	"time"

	"locallibrary/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Author struct {
	ID          uint       `gorm:"primaryKey"`
	FirstName   string     `gorm:"size:100;not null"`
	LastName    string     `gorm:"size:100;not null"`
	DateOfBirth *time.Time `gorm:"type:date"`
	DateOfDeath *time.Time `gorm:"type:date"`
	Books       []Book     `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Name renders "Last, First" as the catalog lists authors.
func (a Author) Name() string {
	return fmt.Sprintf("%s, %s", a.LastName, a.FirstName)
}

type Genre struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null;uniqueIndex"`
}

type Book struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:200;not null;index"`
	Summary   string `gorm:"size:1000"`
	ISBN      string `gorm:"column:isbn;size:13;uniqueIndex;not null"`
	AuthorID  *uint
	Author    *Author
	Genres    []Genre        `gorm:"many2many:book_genres"`
	Instances []BookInstance `gorm:"constraint:OnDelete:RESTRICT"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookInstance is one physical copy of a Book. Status, DueBack and
// Borrower are only written together by the loan workflow.
type BookInstance struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookID    uint      `gorm:"not null;index"`
	Book      *Book
	Imprint   string          `gorm:"size:200"`
	DueBack   *time.Time      `gorm:"type:date;index"`
	Status    workflow.Status `gorm:"size:1;not null;index"`
	Borrower  *string         `gorm:"size:80;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (bi *BookInstance) BeforeCreate(*gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	return nil
}

// Loan returns the workflow fields of the instance.
func (bi BookInstance) Loan() workflow.Proposal {
	return workflow.Proposal{
		DueBack:  bi.DueBack,
		Status:   bi.Status,
		Borrower: bi.Borrower,
	}
}

// IsOverdue reports whether the due date has passed as of today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack != nil && today.After(*bi.DueBack)
}

// All lists the models to auto-migrate, in dependency order.
func All() []any {
	return []any{&Author{}, &Genre{}, &Book{}, &BookInstance{}}
}
