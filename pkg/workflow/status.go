package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the loan status of a single book instance.
// The zero value is not a legal status and is rejected by the database layer.
type Status uint8

const (
	StatusMaintenance Status = iota + 1
	StatusOnLoan
	StatusAvailable
	StatusReserved
)

var ErrInvalidStatus = errors.New("invalid book instance status")

var statusCodes = map[Status]string{
	StatusMaintenance: "m",
	StatusOnLoan:      "o",
	StatusAvailable:   "a",
	StatusReserved:    "r",
}

var statusNames = map[Status]string{
	StatusMaintenance: "Maintenance",
	StatusOnLoan:      "On loan",
	StatusAvailable:   "Available",
	StatusReserved:    "Reserved",
}

// Statuses returns every legal status in display order.
func Statuses() []Status {
	return []Status{StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved}
}

// ParseStatus maps a one letter status code (m, o, a, r) to a Status.
func ParseStatus(code string) (Status, error) {
	for s, c := range statusCodes {
		if c == code {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, code)
}

func (s Status) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Code returns the stored one letter code, or "" for an invalid status.
func (s Status) Code() string {
	return statusCodes[s]
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) GormDataType() string {
	return "string"
}

func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return s.Code(), nil
}

func (s *Status) Scan(src any) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidStatus, src)
	}
	parsed, err := ParseStatus(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return json.Marshal(s.Code())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	parsed, err := ParseStatus(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
