package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInUse is returned when deleting a book that still has copies.
	ErrInUse = errors.New("still referenced")
	// ErrDuplicate is returned when a unique field such as a book's ISBN is taken.
	ErrDuplicate = errors.New("already exists")
)

// Page selects a slice of a listing. Zero values fall back to defaults.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize(defaultSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = defaultSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// InstanceFilter narrows an instance listing. An empty Borrower matches any.
type InstanceFilter struct {
	Status   workflow.Status
	Borrower string
}

// Stats are the counters shown on the index page.
type Stats struct {
	Books              int64
	Instances          int64
	AvailableInstances int64
	Authors            int64
	TitleMatches       int64
}

// Store is the gorm backed catalog repository.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Instance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	var bi models.BookInstance
	err := s.db.WithContext(ctx).Preload("Book").Where("id = ?", id).First(&bi).Error
	if err != nil {
		return nil, notFound(err, "book instance %s", id)
	}
	return &bi, nil
}

func (s *Store) CreateInstance(ctx context.Context, bi *models.BookInstance) error {
	if err := s.db.WithContext(ctx).Create(bi).Error; err != nil {
		return fmt.Errorf("create book instance: %w", err)
	}
	return nil
}

// UpdateLoan writes due_back, status and borrower in a single statement.
func (s *Store) UpdateLoan(ctx context.Context, id uuid.UUID, p workflow.Proposal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BookInstance{}).Where("id = ?", id).Updates(map[string]any{
			"due_back": p.DueBack,
			"status":   p.Status,
			"borrower": p.Borrower,
		})
		if res.Error != nil {
			return fmt.Errorf("update book instance %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book instance %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Instances lists copies matching f ordered by due date.
func (s *Store) Instances(ctx context.Context, f InstanceFilter, page Page) ([]models.BookInstance, int64, error) {
	page = page.normalize(10)
	query := s.db.WithContext(ctx).Model(&models.BookInstance{}).Where("status = ?", f.Status)
	if f.Borrower != "" {
		query = query.Where("borrower = ?", f.Borrower)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count book instances: %w", err)
	}

	var instances []models.BookInstance
	err := query.Preload("Book").
		Order("due_back ASC").Order("id ASC").
		Offset(page.offset()).Limit(page.Size).
		Find(&instances).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list book instances: %w", err)
	}
	return instances, total, nil
}

func (s *Store) Books(ctx context.Context, page Page) ([]models.Book, int64, error) {
	page = page.normalize(5)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}
	var books []models.Book
	err := s.db.WithContext(ctx).Preload("Author").
		Order("title ASC").Order("id ASC").
		Offset(page.offset()).Limit(page.Size).
		Find(&books).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return books, total, nil
}

func (s *Store) Book(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Genres").
		Preload("Instances", func(db *gorm.DB) *gorm.DB { return db.Order("due_back ASC") }).
		First(&b, id).Error
	if err != nil {
		return nil, notFound(err, "book %d", id)
	}
	return &b, nil
}

// SaveBook creates or updates b and replaces its genre set.
func (s *Store) SaveBook(ctx context.Context, b *models.Book, genreIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genres []models.Genre
		if len(genreIDs) > 0 {
			if err := tx.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
				return fmt.Errorf("load genres: %w", err)
			}
			if len(genres) != len(uniq(genreIDs)) {
				return fmt.Errorf("genre: %w", ErrNotFound)
			}
		}
		if b.AuthorID != nil {
			var n int64
			if err := tx.Model(&models.Author{}).Where("id = ?", *b.AuthorID).Count(&n).Error; err != nil {
				return fmt.Errorf("check author: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("author %d: %w", *b.AuthorID, ErrNotFound)
			}
		}
		b.Genres = nil
		b.Author = nil
		if err := tx.Omit("Genres", "Instances", "Author").Save(b).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("book with isbn %s: %w", b.ISBN, ErrDuplicate)
			}
			return fmt.Errorf("save book: %w", err)
		}
		if err := tx.Model(b).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("set book genres: %w", err)
		}
		b.Genres = genres
		return nil
	})
}

func (s *Store) DeleteBook(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var copies int64
		if err := tx.Model(&models.BookInstance{}).Where("book_id = ?", id).Count(&copies).Error; err != nil {
			return fmt.Errorf("count copies: %w", err)
		}
		if copies > 0 {
			return fmt.Errorf("book %d has %d copies: %w", id, copies, ErrInUse)
		}
		book := models.Book{ID: id}
		if err := tx.Model(&book).Association("Genres").Clear(); err != nil {
			return fmt.Errorf("clear book genres: %w", err)
		}
		res := tx.Delete(&models.Book{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete book %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *Store) Authors(ctx context.Context, page Page) ([]models.Author, int64, error) {
	page = page.normalize(5)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Author{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count authors: %w", err)
	}
	var authors []models.Author
	err := s.db.WithContext(ctx).
		Order("last_name ASC").Order("first_name ASC").
		Offset(page.offset()).Limit(page.Size).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list authors: %w", err)
	}
	return authors, total, nil
}

func (s *Store) Author(ctx context.Context, id uint) (*models.Author, error) {
	var a models.Author
	err := s.db.WithContext(ctx).
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("title ASC") }).
		First(&a, id).Error
	if err != nil {
		return nil, notFound(err, "author %d", id)
	}
	return &a, nil
}

func (s *Store) SaveAuthor(ctx context.Context, a *models.Author) error {
	if err := s.db.WithContext(ctx).Omit("Books").Save(a).Error; err != nil {
		return fmt.Errorf("save author: %w", err)
	}
	return nil
}

// DeleteAuthor detaches the author's books before removing the author.
func (s *Store) DeleteAuthor(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach books of author %d: %w", id, err)
		}
		res := tx.Delete(&models.Author{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete author %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("author %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *Store) CreateGenre(ctx context.Context, g *models.Genre) error {
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("genre %q: %w", g.Name, ErrDuplicate)
		}
		return fmt.Errorf("create genre: %w", err)
	}
	return nil
}

// Stats counts catalog rows; titleContains matches instances by book title,
// case-insensitively, and is skipped when empty.
func (s *Store) Stats(ctx context.Context, titleContains string) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.Book{}), &st.Books},
		{db.Model(&models.BookInstance{}), &st.Instances},
		{db.Model(&models.BookInstance{}).Where("status = ?", workflow.StatusAvailable), &st.AvailableInstances},
		{db.Model(&models.Author{}), &st.Authors},
	}
	if titleContains != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(titleContains)) + "%"
		q := db.Model(&models.BookInstance{}).
			Joins("JOIN books ON books.id = book_instances.book_id").
			Where(`LOWER(books.title) LIKE ? ESCAPE '\'`, pattern)
		counts = append(counts, struct {
			query *gorm.DB
			dest  *int64
		}{q, &st.TitleMatches})
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return Stats{}, fmt.Errorf("count catalog: %w", err)
		}
	}
	return st, nil
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
