package workflow

// Listing names one of the status partitioned book instance views.
type Listing string

const (
	ListingMyBorrowed  Listing = "my-borrowed"
	ListingAllBorrowed Listing = "all-borrowed"
	ListingAvailable   Listing = "all-available"
	ListingReserved    Listing = "all-reserved"
	ListingMaintenance Listing = "all-maintenance"
)

// ListingFor returns the all-users listing that shows instances in status s.
func ListingFor(s Status) Listing {
	switch s {
	case StatusOnLoan:
		return ListingAllBorrowed
	case StatusAvailable:
		return ListingAvailable
	case StatusReserved:
		return ListingReserved
	case StatusMaintenance:
		return ListingMaintenance
	}
	return ""
}

// Status returns the status a listing filters on.
func (l Listing) Status() Status {
	switch l {
	case ListingMyBorrowed, ListingAllBorrowed:
		return StatusOnLoan
	case ListingAvailable:
		return StatusAvailable
	case ListingReserved:
		return StatusReserved
	case ListingMaintenance:
		return StatusMaintenance
	}
	return 0
}

func (l Listing) Valid() bool {
	return l.Status().Valid()
}
