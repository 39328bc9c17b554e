package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// EventStatus enumerates the event approval lifecycle. Completed is always
// set explicitly, never derived from dates.
type EventStatus string

const (
	EventProposed  EventStatus = "Proposed"
	EventApproved  EventStatus = "Approved"
	EventOngoing   EventStatus = "Ongoing"
	EventCompleted EventStatus = "Completed"
	EventCancelled EventStatus = "Cancelled"
	EventRejected  EventStatus = "Rejected"
)

// EventWorkflow is the closed status vocabulary for events.
var EventWorkflow = Workflow{
	Statuses: []string{
		string(EventProposed), string(EventApproved), string(EventOngoing),
		string(EventCompleted), string(EventCancelled), string(EventRejected),
	},
	Initial:  string(EventProposed),
	Approved: string(EventApproved),
	Rejected: string(EventRejected),
	Terminal: []string{string(EventCompleted), string(EventCancelled), string(EventRejected)},
}

// EventTypes enumerates recognised event categories.
var EventTypes = []string{"Conference", "Workshop", "Seminar", "Webinar", "Symposium", "Other"}

// Registration captures an attendee sign-up for an event.
type Registration struct {
	UserID       *string    `json:"userId,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Affiliation  string     `json:"affiliation,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
	Attended     bool       `json:"attended"`
}

// Registrations is a JSONB-backed registration collection.
type Registrations []Registration

func (r Registrations) Value() (driver.Value, error) { return json.Marshal(r) }
func (r *Registrations) Scan(src interface{}) error  { return scanJSON(r, src) }

// Event represents an academic event with registrations.
type Event struct {
	ID             string        `db:"id" json:"id"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description,omitempty"`
	Abstract       string        `db:"abstract" json:"abstract,omitempty"`
	EventType      string        `db:"event_type" json:"eventType"`
	Organizer      *string       `db:"organizer" json:"organizer,omitempty"`
	CoOrganizers   Members       `db:"co_organizers" json:"coOrganizers,omitempty"`
	Venue          string        `db:"venue" json:"venue,omitempty"`
	Department     string        `db:"department" json:"department"`
	StartDate      *time.Time    `db:"start_date" json:"startDate,omitempty"`
	EndDate        *time.Time    `db:"end_date" json:"endDate,omitempty"`
	Capacity       int           `db:"capacity" json:"capacity"`
	Registrations  Registrations `db:"registrations" json:"registrations,omitempty"`
	Status         EventStatus   `db:"status" json:"status"`
	ReviewedBy     *string       `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments string        `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt     *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt     *time.Time    `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`

	// Derived at read time.
	DurationDays       int       `db:"-" json:"durationDays"`
	TotalRegistrations int       `db:"-" json:"totalRegistrations"`
	OrganizerInfo      *OwnerRef `db:"-" json:"organizerInfo,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (e *Event) ApplyDerived() {
	e.DurationDays = 0
	if e.StartDate != nil && e.EndDate != nil && !e.EndDate.Before(*e.StartDate) {
		e.DurationDays = int(e.EndDate.Sub(*e.StartDate).Hours()/24) + 1
	}
	e.TotalRegistrations = len(e.Registrations)
}

// CanEdit grants mutation rights to the organizer or any co-organizer.
func (e *Event) CanEdit(userID string) bool {
	if userID == "" {
		return false
	}
	if e.Organizer != nil && *e.Organizer == userID {
		return true
	}
	return e.CoOrganizers.HasUser(userID)
}

// EventDetail pairs an event with resolved display references.
type EventDetail struct {
	Event
	OrganizerName  string `db:"organizer_name" json:"-"`
	OrganizerEmail string `db:"organizer_email" json:"-"`
}

// EventFilter captures list query parameters.
type EventFilter struct {
	Status      string
	EventType   string
	Department  string
	OrganizerID string
	Upcoming    bool
	Search      string
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}

// EventStats aggregates counts for the stats endpoint.
type EventStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByType   map[string]int `json:"byType"`
	Upcoming int            `json:"upcoming"`
	Recent   int            `json:"recent"`
}
