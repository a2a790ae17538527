package database

import (
	"errors"
	"fmt"
	"time"

	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedBook struct {
	title, isbn, summary string
	first, last          string
	genre                string
	statuses             []workflow.Status
}

var seedBooks = []seedBook{
	{
		title: "El poder del ahora", isbn: "9788484450344",
		summary: "A guide to spiritual enlightenment.",
		first:   "Eckhart", last: "Tolle", genre: "Non-fiction",
		statuses: []workflow.Status{workflow.StatusAvailable, workflow.StatusOnLoan},
	},
	{
		title: "The Name of the Wind", isbn: "9780756404741",
		summary: "The tale of Kvothe, told in his own words.",
		first:   "Patrick", last: "Rothfuss", genre: "Fantasy",
		statuses: []workflow.Status{workflow.StatusOnLoan, workflow.StatusReserved, workflow.StatusMaintenance},
	},
	{
		title: "Dune", isbn: "9780441172719",
		summary: "Paul Atreides and the desert planet Arrakis.",
		first:   "Frank", last: "Herbert", genre: "Science Fiction",
		statuses: []workflow.Status{workflow.StatusAvailable},
	},
}

// Seed inserts a small demo catalog. Books already present by ISBN are left alone.
func Seed(db *gorm.DB, log *zap.Logger, today time.Time) error {
	for _, sb := range seedBooks {
		var existing models.Book
		err := db.Where("isbn = ?", sb.isbn).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup seed book %s: %w", sb.isbn, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			author := models.Author{FirstName: sb.first, LastName: sb.last}
			if err := tx.Where(models.Author{FirstName: sb.first, LastName: sb.last}).FirstOrCreate(&author).Error; err != nil {
				return err
			}
			genre := models.Genre{Name: sb.genre}
			if err := tx.Where(models.Genre{Name: sb.genre}).FirstOrCreate(&genre).Error; err != nil {
				return err
			}
			book := models.Book{
				Title:    sb.title,
				ISBN:     sb.isbn,
				Summary:  sb.summary,
				AuthorID: &author.ID,
				Genres:   []models.Genre{genre},
			}
			if err := tx.Create(&book).Error; err != nil {
				return err
			}
			for i, status := range sb.statuses {
				instance := models.BookInstance{
					BookID:  book.ID,
					Imprint: fmt.Sprintf("Seed imprint %d", i+1),
					Status:  status,
				}
				if status == workflow.StatusOnLoan {
					due := today.AddDate(0, 0, 7*(i+1))
					borrower := "reader"
					instance.DueBack = &due
					instance.Borrower = &borrower
				}
				if err := tx.Create(&instance).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("seed book %s: %w", sb.isbn, err)
		}
		log.Info("Seeded book", zap.String("title", sb.title), zap.Int("instances", len(sb.statuses)))
	}
	return nil
}
