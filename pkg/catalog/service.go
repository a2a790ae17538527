package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locallibrary/pkg/access"
	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the persistence the catalog service needs. *Store implements it.
type Repository interface {
	Instance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error)
	UpdateLoan(ctx context.Context, id uuid.UUID, p workflow.Proposal) error
	Instances(ctx context.Context, f InstanceFilter, page Page) ([]models.BookInstance, int64, error)
	Books(ctx context.Context, page Page) ([]models.Book, int64, error)
	Book(ctx context.Context, id uint) (*models.Book, error)
	SaveBook(ctx context.Context, b *models.Book, genreIDs []uint) error
	DeleteBook(ctx context.Context, id uint) error
	Authors(ctx context.Context, page Page) ([]models.Author, int64, error)
	Author(ctx context.Context, id uint) (*models.Author, error)
	SaveAuthor(ctx context.Context, a *models.Author) error
	DeleteAuthor(ctx context.Context, id uint) error
	Stats(ctx context.Context, titleContains string) (Stats, error)
}

// Outcome is the result of a loan workflow operation.
type Outcome struct {
	Instance *models.BookInstance
	Redirect workflow.Listing
}

type Service struct {
	repo   Repository
	engine *workflow.Engine
	log    *zap.Logger
}

func NewService(repo Repository, engine *workflow.Engine, log *zap.Logger) *Service {
	return &Service{repo: repo, engine: engine, log: log.Named("catalog")}
}

func (s *Service) Engine() *workflow.Engine {
	return s.engine
}

// RenewalForm returns the instance and the proposal offered before the
// librarian submits anything.
func (s *Service) RenewalForm(ctx context.Context, who access.Identity, id uuid.UUID) (*models.BookInstance, workflow.Proposal, error) {
	if err := access.Require(who, access.CanMarkReturned); err != nil {
		return nil, workflow.Proposal{}, err
	}
	bi, err := s.repo.Instance(ctx, id)
	if err != nil {
		return nil, workflow.Proposal{}, err
	}
	return bi, s.engine.RenewalDefaults(bi.Loan()), nil
}

// Renew applies p after checking the renewal date window. On a
// workflow.ValidationErrors the instance is returned unchanged.
func (s *Service) Renew(ctx context.Context, who access.Identity, id uuid.UUID, p workflow.Proposal) (Outcome, error) {
	if err := access.Require(who, access.CanMarkReturned); err != nil {
		return Outcome{}, err
	}
	bi, err := s.repo.Instance(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.engine.CheckRenewal(p); err != nil {
		return Outcome{Instance: bi}, err
	}
	updated, err := s.apply(ctx, who, bi, p)
	if err != nil {
		return Outcome{Instance: bi}, err
	}
	return Outcome{Instance: updated, Redirect: s.engine.RenewalTarget()}, nil
}

// StatusForm returns the instance and the default status change proposal.
func (s *Service) StatusForm(ctx context.Context, who access.Identity, id uuid.UUID) (*models.BookInstance, workflow.Proposal, error) {
	if err := access.Require(who, access.CanLoanBook); err != nil {
		return nil, workflow.Proposal{}, err
	}
	bi, err := s.repo.Instance(ctx, id)
	if err != nil {
		return nil, workflow.Proposal{}, err
	}
	return bi, s.engine.StatusChangeDefaults(), nil
}

// ChangeStatus applies p without date checks. The redirect names the
// listing of the status the instance had before the change.
func (s *Service) ChangeStatus(ctx context.Context, who access.Identity, id uuid.UUID, p workflow.Proposal) (Outcome, error) {
	if err := access.Require(who, access.CanLoanBook); err != nil {
		return Outcome{}, err
	}
	bi, err := s.repo.Instance(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	original := bi.Status
	if err := s.engine.CheckStatusChange(p); err != nil {
		return Outcome{Instance: bi}, err
	}
	updated, err := s.apply(ctx, who, bi, p)
	if err != nil {
		return Outcome{Instance: bi}, err
	}
	return Outcome{Instance: updated, Redirect: s.engine.StatusChangeTarget(original)}, nil
}

func (s *Service) apply(ctx context.Context, who access.Identity, bi *models.BookInstance, p workflow.Proposal) (*models.BookInstance, error) {
	if err := s.repo.UpdateLoan(ctx, bi.ID, p); err != nil {
		return nil, err
	}
	s.log.Info("Book instance updated",
		zap.String("instance_id", bi.ID.String()),
		zap.String("by", who.Username),
		zap.String("from", bi.Status.Code()),
		zap.String("to", p.Status.Code()),
		zap.String("due_back", workflow.FormatDate(p.DueBack)),
	)
	updated := *bi
	updated.DueBack = p.DueBack
	updated.Status = p.Status
	updated.Borrower = p.Borrower
	return &updated, nil
}

// Listing returns one status partition. my-borrowed only needs a signed-in
// caller and is restricted to their own loans.
func (s *Service) Listing(ctx context.Context, who access.Identity, l workflow.Listing, page Page) ([]models.BookInstance, int64, error) {
	filter := InstanceFilter{Status: l.Status()}
	switch l {
	case workflow.ListingMyBorrowed:
		if err := access.RequireAuthenticated(who); err != nil {
			return nil, 0, err
		}
		filter.Borrower = who.Username
	case workflow.ListingAllBorrowed:
		if err := access.Require(who, access.CanMarkReturned); err != nil {
			return nil, 0, err
		}
	case workflow.ListingAvailable, workflow.ListingReserved, workflow.ListingMaintenance:
		if err := access.Require(who, access.CanLoanBook); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, fmt.Errorf("listing %q: %w", l, ErrNotFound)
	}
	return s.repo.Instances(ctx, filter, page)
}

func (s *Service) Stats(ctx context.Context, titleContains string) (Stats, error) {
	return s.repo.Stats(ctx, titleContains)
}

func (s *Service) Books(ctx context.Context, page Page) ([]models.Book, int64, error) {
	return s.repo.Books(ctx, page)
}

func (s *Service) Book(ctx context.Context, id uint) (*models.Book, error) {
	return s.repo.Book(ctx, id)
}

func (s *Service) Authors(ctx context.Context, page Page) ([]models.Author, int64, error) {
	return s.repo.Authors(ctx, page)
}

func (s *Service) Author(ctx context.Context, id uint) (*models.Author, error) {
	return s.repo.Author(ctx, id)
}

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title    string
	Summary  string
	ISBN     string
	AuthorID *uint
	GenreIDs []uint
}

func (in BookInput) applyTo(b *models.Book) {
	b.Title = in.Title
	b.Summary = in.Summary
	b.ISBN = in.ISBN
	b.AuthorID = in.AuthorID
}

func (s *Service) CreateBook(ctx context.Context, who access.Identity, in BookInput) (*models.Book, error) {
	if err := access.Require(who, access.AddBook); err != nil {
		return nil, err
	}
	var b models.Book
	in.applyTo(&b)
	if err := s.repo.SaveBook(ctx, &b, in.GenreIDs); err != nil {
		return nil, err
	}
	return s.repo.Book(ctx, b.ID)
}

func (s *Service) UpdateBook(ctx context.Context, who access.Identity, id uint, in BookInput) (*models.Book, error) {
	if err := access.Require(who, access.ChangeBook); err != nil {
		return nil, err
	}
	b, err := s.repo.Book(ctx, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(b)
	if err := s.repo.SaveBook(ctx, b, in.GenreIDs); err != nil {
		return nil, err
	}
	return s.repo.Book(ctx, id)
}

func (s *Service) DeleteBook(ctx context.Context, who access.Identity, id uint) error {
	if err := access.Require(who, access.DeleteBook); err != nil {
		return err
	}
	return s.repo.DeleteBook(ctx, id)
}

// AuthorInput carries the editable fields of an author.
type AuthorInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	DateOfDeath *time.Time
}

func (in AuthorInput) applyTo(a *models.Author) {
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.DateOfBirth = in.DateOfBirth
	a.DateOfDeath = in.DateOfDeath
}

func (s *Service) CreateAuthor(ctx context.Context, who access.Identity, in AuthorInput) (*models.Author, error) {
	if err := access.Require(who, access.AddAuthor); err != nil {
		return nil, err
	}
	var a models.Author
	in.applyTo(&a)
	if err := s.repo.SaveAuthor(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) UpdateAuthor(ctx context.Context, who access.Identity, id uint, in AuthorInput) (*models.Author, error) {
	if err := access.Require(who, access.ChangeAuthor); err != nil {
		return nil, err
	}
	a, err := s.repo.Author(ctx, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(a)
	if err := s.repo.SaveAuthor(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAuthor(ctx context.Context, who access.Identity, id uint) error {
	if err := access.Require(who, access.DeleteAuthor); err != nil {
		return err
	}
	return s.repo.DeleteAuthor(ctx, id)
}

// IsValidation reports whether err is a correctable proposal error.
func IsValidation(err error) bool {
	var verrs workflow.ValidationErrors
	return errors.As(err, &verrs)
}
