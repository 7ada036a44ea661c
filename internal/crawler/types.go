package crawler

import (
	"time"
)

// NotAvailable is stored for optional fields that could not be located.
const NotAvailable = "N/A"

// DateLayout renders dates as MM/DD/YYYY in the process time zone.
const DateLayout = "01/02/2006"

// JobRecord is one listing extracted from a page.
type JobRecord struct {
	Title       string     `json:"title"`
	CompanyName string     `json:"company_name"`
	Location    string     `json:"location"`
	Salary      string     `json:"salary"`
	Category    string     `json:"category"`
	SubCategory string     `json:"sub_category"`
	Description string     `json:"description"`
	Posted      string     `json:"posted"`
	PostedDate  *time.Time `json:"posted_date,omitempty"`
}

// PageResult holds the records of one page in document order. An empty
// result means the page existed but carried no listings.
type PageResult []JobRecord

// OutcomeKind tags a FetchOutcome.
type OutcomeKind int

// Fetch outcome kinds. Transient failures are reported as errors instead.
const (
	OutcomeContent OutcomeKind = iota
	OutcomeNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContent:
		return "content"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// FetchOutcome is the result of fetching one listing page.
type FetchOutcome struct {
	Kind       OutcomeKind
	Page       int
	URL        string
	StatusCode int
	Body       []byte
	Attempts   int
	Duration   time.Duration
}

// NotFound reports whether the outcome ends pagination.
func (o FetchOutcome) NotFound() bool {
	return o.Kind == OutcomeNotFound
}

// PageState is the lifecycle state of a single page.
type PageState string

// Page lifecycle states.
const (
	PageStatePending    PageState = "pending"
	PageStateFetching   PageState = "fetching"
	PageStateExtracting PageState = "extracting"
	PageStatePersisting PageState = "persisting"
	PageStateDone       PageState = "done"
	PageStateSkipped    PageState = "skipped"
	PageStateFailed     PageState = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s PageState) Terminal() bool {
	switch s {
	case PageStateDone, PageStateSkipped, PageStateFailed:
		return true
	default:
		return false
	}
}

// PageReport summarizes what happened to one page.
type PageReport struct {
	Page     int           `json:"page"`
	State    PageState     `json:"state"`
	Records  int           `json:"records"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}
