package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ContactStatus enumerates the inquiry lifecycle.
type ContactStatus string

const (
	ContactNew        ContactStatus = "New"
	ContactInProgress ContactStatus = "In Progress"
	ContactResponded  ContactStatus = "Responded"
	ContactResolved   ContactStatus = "Resolved"
	ContactClosed     ContactStatus = "Closed"
)

// ContactWorkflow is the closed status vocabulary for contact inquiries.
var ContactWorkflow = Workflow{
	Statuses: []string{
		string(ContactNew), string(ContactInProgress), string(ContactResponded),
		string(ContactResolved), string(ContactClosed),
	},
	Initial:  string(ContactNew),
	Approved: string(ContactResolved),
	Rejected: string(ContactClosed),
	Terminal: []string{string(ContactResolved), string(ContactClosed)},
}

// ContactCategories enumerates recognised inquiry categories.
var ContactCategories = []string{"General", "Admissions", "Research", "Collaboration", "Complaint", "Other"}

// ContactResponse records an admin reply to an inquiry.
type ContactResponse struct {
	RespondedBy *string    `json:"respondedBy,omitempty"`
	Message     string     `json:"message,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

func (r ContactResponse) Value() (driver.Value, error) { return json.Marshal(r) }
func (r *ContactResponse) Scan(src interface{}) error  { return scanJSON(r, src) }

// Contact represents a public inquiry submitted without authentication.
type Contact struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Email     string          `db:"email" json:"email"`
	Phone     string          `db:"phone" json:"phone,omitempty"`
	Subject   string          `db:"subject" json:"subject"`
	Message   string          `db:"message" json:"message"`
	Category  string          `db:"category" json:"category"`
	Status    ContactStatus   `db:"status" json:"status"`
	Response  ContactResponse `db:"response" json:"response"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// ContactFilter captures list query parameters.
type ContactFilter struct {
	Status    string
	Category  string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ContactStats aggregates counts for the stats endpoint.
type ContactStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
	Recent     int            `json:"recent"`
}

// BulkUpdateResult reports the per-document outcome of a multi-id update.
// A partial match is not an error.
type BulkUpdateResult struct {
	MatchedCount  int `json:"matchedCount"`
	ModifiedCount int `json:"modifiedCount"`
}
