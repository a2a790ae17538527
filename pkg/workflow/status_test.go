package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		code string
		want Status
	}{
		{"m", StatusMaintenance},
		{"o", StatusOnLoan},
		{"a", StatusAvailable},
		{"r", StatusReserved},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseStatus(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.code, got.Code())
		})
	}

	_, err := ParseStatus("x")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
	_, err = ParseStatus("")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestStatusValueRejectsZero(t *testing.T) {
	var zero Status
	assert.False(t, zero.Valid())
	_, err := zero.Value()
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	v, err := StatusOnLoan.Value()
	require.NoError(t, err)
	assert.Equal(t, "o", v)
}

func TestStatusScan(t *testing.T) {
	var s Status
	require.NoError(t, s.Scan([]byte("r")))
	assert.Equal(t, StatusReserved, s)

	require.NoError(t, s.Scan("m"))
	assert.Equal(t, StatusMaintenance, s)

	assert.Error(t, s.Scan("z"))
	assert.Error(t, s.Scan(42))
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(data))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"o"`), &s))
	assert.Equal(t, StatusOnLoan, s)
	assert.Error(t, json.Unmarshal([]byte(`"q"`), &s))
}

func TestListingStatusRoundTrip(t *testing.T) {
	for _, s := range Statuses() {
		assert.Equal(t, s, ListingFor(s).Status())
	}
	assert.Equal(t, StatusOnLoan, ListingMyBorrowed.Status())
	assert.False(t, Listing("all-lost").Valid())
}
