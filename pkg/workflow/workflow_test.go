package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedNow }))
}

func day(offset int) *time.Time {
	d := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func TestCheckRenewal(t *testing.T) {
	tests := []struct {
		name    string
		dueBack *time.Time
		code    string
	}{
		{name: "today is in the past", dueBack: day(0), code: CodeDateInPast},
		{name: "yesterday is in the past", dueBack: day(-1), code: CodeDateInPast},
		{name: "29 days ahead is too far", dueBack: day(29), code: CodeDateTooFar},
		{name: "missing date", dueBack: nil, code: CodeRequired},
		{name: "tomorrow is accepted", dueBack: day(1)},
		{name: "one week is accepted", dueBack: day(7)},
		{name: "exactly four weeks is accepted", dueBack: day(28)},
	}

	engine := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.CheckRenewal(Proposal{DueBack: tt.dueBack, Status: StatusOnLoan})
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.True(t, verrs.Has(tt.code), "expected %s in %v", tt.code, verrs)
			assert.Contains(t, verrs.Fields(), FieldDueBack)
		})
	}
}

func TestCheckRenewalMessages(t *testing.T) {
	engine := testEngine()

	err := engine.CheckRenewal(Proposal{DueBack: day(0), Status: StatusOnLoan})
	assert.Equal(t, "Invalid date - renewal in past", err.(ValidationErrors).Fields()[FieldDueBack])

	err = engine.CheckRenewal(Proposal{DueBack: day(29), Status: StatusOnLoan})
	assert.Equal(t, "Invalid date - renewal more than 4 weeks ahead", err.(ValidationErrors).Fields()[FieldDueBack])
}

func TestCheckRenewalIgnoresTimeOfDay(t *testing.T) {
	engine := testEngine()
	lateTomorrow := time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC)
	lateLastDay := time.Date(2024, 6, 7, 23, 0, 0, 0, time.UTC)

	assert.NoError(t, engine.CheckRenewal(Proposal{DueBack: &lateTomorrow, Status: StatusOnLoan}))
	assert.NoError(t, engine.CheckRenewal(Proposal{DueBack: &lateLastDay, Status: StatusOnLoan}))
}

func TestCheckRenewalRejectsInvalidStatus(t *testing.T) {
	err := testEngine().CheckRenewal(Proposal{DueBack: day(7)})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has(CodeBadStatus))
}

func TestCheckStatusChangeAcceptsAnyDate(t *testing.T) {
	engine := testEngine()
	assert.NoError(t, engine.CheckStatusChange(Proposal{DueBack: day(-100), Status: StatusAvailable}))
	assert.NoError(t, engine.CheckStatusChange(Proposal{DueBack: day(365), Status: StatusReserved}))
	assert.NoError(t, engine.CheckStatusChange(Proposal{Status: StatusMaintenance}))
	assert.Error(t, engine.CheckStatusChange(Proposal{}))
}

func TestRenewalDefaults(t *testing.T) {
	borrower := "alice"
	current := Proposal{DueBack: day(2), Status: StatusReserved, Borrower: &borrower}

	p := testEngine().RenewalDefaults(current)

	require.NotNil(t, p.DueBack)
	assert.Equal(t, "2024-05-31", FormatDate(p.DueBack))
	assert.Equal(t, StatusReserved, p.Status)
	assert.Equal(t, &borrower, p.Borrower)
}

func TestStatusChangeDefaults(t *testing.T) {
	p := testEngine().StatusChangeDefaults()
	assert.Nil(t, p.DueBack)
	assert.Nil(t, p.Borrower)
	assert.Equal(t, StatusAvailable, p.Status)
}

func TestTodayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)
	engine := NewEngine(WithClock(func() time.Time { return now }), WithLocation(tokyo))

	assert.Equal(t, "2024-05-11", engine.Today().Format(DateLayout))
}

func TestTargets(t *testing.T) {
	engine := testEngine()
	assert.Equal(t, ListingAllBorrowed, engine.RenewalTarget())

	tests := []struct {
		original Status
		want     Listing
	}{
		{StatusOnLoan, ListingAllBorrowed},
		{StatusAvailable, ListingAvailable},
		{StatusReserved, ListingReserved},
		{StatusMaintenance, ListingMaintenance},
	}
	for _, tt := range tests {
		t.Run(tt.original.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, engine.StatusChangeTarget(tt.original))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *d)

	d, err = ParseDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDate("02/01/2024")
	assert.Error(t, err)
}
