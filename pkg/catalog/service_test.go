package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"locallibrary/pkg/access"
	"locallibrary/pkg/models"
	"locallibrary/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.May, 10, 15, 30, 0, 0, time.UTC)

var (
	librarian = access.Identity{Username: "librarian", Capabilities: access.Librarian()}
	reader    = access.Identity{Username: "alice"}
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	engine := workflow.NewEngine(workflow.WithClock(func() time.Time { return fixedNow }))
	return NewService(NewStore(db), engine, zap.NewNop()), db
}

func daysFromToday(n int) *time.Time {
	d := time.Date(2024, time.May, 10+n, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestServiceRenew(t *testing.T) {
	tests := []struct {
		name     string
		dueBack  *time.Time
		wantCode string
	}{
		{"today is rejected", daysFromToday(0), workflow.CodeDateInPast},
		{"yesterday is rejected", daysFromToday(-1), workflow.CodeDateInPast},
		{"more than four weeks is rejected", daysFromToday(29), workflow.CodeDateTooFar},
		{"missing date is rejected", nil, workflow.CodeRequired},
		{"tomorrow is accepted", daysFromToday(1), ""},
		{"one week is accepted", daysFromToday(7), ""},
		{"exactly four weeks is accepted", daysFromToday(28), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newTestService(t)
			book := createBook(t, db, "Dune", "9780441172719")
			bi := createInstance(t, db, book.ID, workflow.StatusOnLoan, date("2024-05-01"), strptr("alice"))

			out, err := svc.Renew(context.Background(), librarian, bi.ID, workflow.Proposal{
				DueBack:  tt.dueBack,
				Status:   workflow.StatusOnLoan,
				Borrower: strptr("alice"),
			})

			stored, loadErr := svc.repo.Instance(context.Background(), bi.ID)
			require.NoError(t, loadErr)

			if tt.wantCode != "" {
				var verrs workflow.ValidationErrors
				require.True(t, errors.As(err, &verrs))
				assert.True(t, verrs.Has(tt.wantCode))
				assert.True(t, IsValidation(err))
				assert.Equal(t, "2024-05-01", workflow.FormatDate(stored.DueBack))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, workflow.ListingAllBorrowed, out.Redirect)
			assert.Equal(t, workflow.FormatDate(tt.dueBack), workflow.FormatDate(stored.DueBack))
			assert.Equal(t, workflow.StatusOnLoan, stored.Status)
			require.NotNil(t, stored.Borrower)
			assert.Equal(t, "alice", *stored.Borrower)
		})
	}
}

func TestServiceRenewalForm(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	bi := createInstance(t, db, book.ID, workflow.StatusReserved, date("2024-05-01"), strptr("bob"))

	got, proposal, err := svc.RenewalForm(context.Background(), librarian, bi.ID)
	require.NoError(t, err)
	assert.Equal(t, bi.ID, got.ID)
	assert.Equal(t, "2024-05-31", workflow.FormatDate(proposal.DueBack))
	assert.Equal(t, workflow.StatusReserved, proposal.Status)
	require.NotNil(t, proposal.Borrower)
	assert.Equal(t, "bob", *proposal.Borrower)
}

func TestServiceChangeStatusRedirectsByOriginalStatus(t *testing.T) {
	tests := []struct {
		original workflow.Status
		want     workflow.Listing
	}{
		{workflow.StatusOnLoan, workflow.ListingAllBorrowed},
		{workflow.StatusAvailable, workflow.ListingAvailable},
		{workflow.StatusReserved, workflow.ListingReserved},
		{workflow.StatusMaintenance, workflow.ListingMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.original.String(), func(t *testing.T) {
			svc, db := newTestService(t)
			book := createBook(t, db, "Dune", "9780441172719")
			bi := createInstance(t, db, book.ID, tt.original, date("2024-05-01"), strptr("alice"))

			out, err := svc.ChangeStatus(context.Background(), librarian, bi.ID, workflow.Proposal{Status: workflow.StatusAvailable})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Redirect)
			assert.Equal(t, workflow.StatusAvailable, out.Instance.Status)

			stored, err := svc.repo.Instance(context.Background(), bi.ID)
			require.NoError(t, err)
			assert.Equal(t, workflow.StatusAvailable, stored.Status)
			assert.Nil(t, stored.DueBack)
			assert.Nil(t, stored.Borrower)
		})
	}
}

func TestServiceChangeStatusAcceptsPastDate(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	bi := createInstance(t, db, book.ID, workflow.StatusAvailable, nil, nil)

	out, err := svc.ChangeStatus(context.Background(), librarian, bi.ID, workflow.Proposal{
		DueBack:  daysFromToday(-30),
		Status:   workflow.StatusOnLoan,
		Borrower: strptr("alice"),
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.ListingAvailable, out.Redirect)
}

func TestServiceStatusForm(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	bi := createInstance(t, db, book.ID, workflow.StatusOnLoan, date("2024-05-01"), strptr("alice"))

	_, proposal, err := svc.StatusForm(context.Background(), librarian, bi.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Proposal{Status: workflow.StatusAvailable}, proposal)
}

func TestServiceAccessChecksBeforeData(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	bi := createInstance(t, db, book.ID, workflow.StatusReserved, date("2024-05-01"), strptr("bob"))
	ctx := context.Background()
	p := workflow.Proposal{Status: workflow.StatusAvailable}

	_, err := svc.ChangeStatus(ctx, reader, bi.ID, p)
	assert.True(t, errors.Is(err, access.ErrForbidden))

	_, err = svc.ChangeStatus(ctx, access.Anonymous(), bi.ID, p)
	assert.True(t, errors.Is(err, access.ErrUnauthenticated))

	_, err = svc.Renew(ctx, reader, bi.ID, workflow.Proposal{DueBack: daysFromToday(7), Status: workflow.StatusOnLoan})
	assert.True(t, errors.Is(err, access.ErrForbidden))

	// a forbidden caller learns nothing about unknown ids either
	_, err = svc.ChangeStatus(ctx, reader, uuid.New(), p)
	assert.True(t, errors.Is(err, access.ErrForbidden))

	stored, err := svc.repo.Instance(ctx, bi.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusReserved, stored.Status)
}

func TestServiceUnknownInstance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Renew(ctx, librarian, uuid.New(), workflow.Proposal{DueBack: daysFromToday(7), Status: workflow.StatusOnLoan})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.ChangeStatus(ctx, librarian, uuid.New(), workflow.Proposal{Status: workflow.StatusAvailable})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = svc.RenewalForm(ctx, librarian, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceListings(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	createInstance(t, db, book.ID, workflow.StatusOnLoan, date("2024-03-01"), strptr("alice"))
	createInstance(t, db, book.ID, workflow.StatusOnLoan, date("2024-01-01"), strptr("bob"))
	createInstance(t, db, book.ID, workflow.StatusOnLoan, date("2024-02-01"), strptr("alice"))
	createInstance(t, db, book.ID, workflow.StatusMaintenance, nil, nil)
	ctx := context.Background()

	mine, total, err := svc.Listing(ctx, reader, workflow.ListingMyBorrowed, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, mine, 2)
	assert.Equal(t, "2024-02-01", workflow.FormatDate(mine[0].DueBack))
	assert.Equal(t, "2024-03-01", workflow.FormatDate(mine[1].DueBack))

	all, _, err := svc.Listing(ctx, librarian, workflow.ListingAllBorrowed, Page{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-01", workflow.FormatDate(all[0].DueBack))

	maint, _, err := svc.Listing(ctx, librarian, workflow.ListingMaintenance, Page{})
	require.NoError(t, err)
	assert.Len(t, maint, 1)

	_, _, err = svc.Listing(ctx, access.Anonymous(), workflow.ListingMyBorrowed, Page{})
	assert.True(t, errors.Is(err, access.ErrUnauthenticated))

	_, _, err = svc.Listing(ctx, reader, workflow.ListingAllBorrowed, Page{})
	assert.True(t, errors.Is(err, access.ErrForbidden))

	_, _, err = svc.Listing(ctx, reader, workflow.ListingReserved, Page{})
	assert.True(t, errors.Is(err, access.ErrForbidden))

	_, _, err = svc.Listing(ctx, librarian, workflow.Listing("bogus"), Page{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceBookAndAuthorCRUD(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAuthor(ctx, reader, AuthorInput{FirstName: "Frank", LastName: "Herbert"})
	assert.True(t, errors.Is(err, access.ErrForbidden))

	author, err := svc.CreateAuthor(ctx, librarian, AuthorInput{
		FirstName:   "Frank",
		LastName:    "Herbert",
		DateOfBirth: date("1920-10-08"),
	})
	require.NoError(t, err)
	assert.NotZero(t, author.ID)

	author, err = svc.UpdateAuthor(ctx, librarian, author.ID, AuthorInput{
		FirstName:   "Frank",
		LastName:    "Herbert",
		DateOfBirth: date("1920-10-08"),
		DateOfDeath: date("1986-02-11"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1986-02-11", workflow.FormatDate(author.DateOfDeath))

	book, err := svc.CreateBook(ctx, librarian, BookInput{Title: "Dune", ISBN: "9780441172719", AuthorID: &author.ID})
	require.NoError(t, err)
	require.NotNil(t, book.Author)
	assert.Equal(t, "Herbert, Frank", book.Author.Name())

	book, err = svc.UpdateBook(ctx, librarian, book.ID, BookInput{Title: "Dune", Summary: "Spice.", ISBN: "9780441172719"})
	require.NoError(t, err)
	assert.Nil(t, book.AuthorID)
	assert.Equal(t, "Spice.", book.Summary)

	_, err = svc.UpdateBook(ctx, librarian, 999, BookInput{Title: "X", ISBN: "1"})
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(svc.DeleteBook(ctx, reader, book.ID), access.ErrForbidden))
	require.NoError(t, svc.DeleteBook(ctx, librarian, book.ID))
	require.NoError(t, svc.DeleteAuthor(ctx, librarian, author.ID))

	_, err = svc.Author(ctx, author.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceUpdateBookKeepsCopies(t *testing.T) {
	svc, db := newTestService(t)
	book := createBook(t, db, "Dune", "9780441172719")
	createInstance(t, db, book.ID, workflow.StatusAvailable, nil, nil)

	updated, err := svc.UpdateBook(context.Background(), librarian, book.ID, BookInput{Title: "Dune (1965)", ISBN: "9780441172719"})
	require.NoError(t, err)
	assert.Len(t, updated.Instances, 1)

	var count int64
	require.NoError(t, db.Model(&models.BookInstance{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
