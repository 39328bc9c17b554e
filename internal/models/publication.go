package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// PublicationStatus enumerates the publication approval lifecycle.
type PublicationStatus string

const (
	PublicationDraft       PublicationStatus = "Draft"
	PublicationSubmitted   PublicationStatus = "Submitted"
	PublicationUnderReview PublicationStatus = "Under Review"
	PublicationApproved    PublicationStatus = "Approved"
	PublicationRejected    PublicationStatus = "Rejected"
	PublicationPublished   PublicationStatus = "Published"
)

// PublicationWorkflow is the closed status vocabulary for publications.
var PublicationWorkflow = Workflow{
	Statuses: []string{
		string(PublicationDraft), string(PublicationSubmitted), string(PublicationUnderReview),
		string(PublicationApproved), string(PublicationRejected), string(PublicationPublished),
	},
	Initial:  string(PublicationDraft),
	Approved: string(PublicationApproved),
	Rejected: string(PublicationRejected),
	Terminal: []string{string(PublicationApproved), string(PublicationRejected), string(PublicationPublished)},
}

// PublicationType enumerates recognised publication categories.
var PublicationTypes = []string{"Journal Article", "Conference Paper", "Book Chapter", "Book", "Patent", "Other"}

// Author is a weak reference to a publication author with ordering.
type Author struct {
	UserID      *string `json:"userId,omitempty"`
	Name        string  `json:"name"`
	Email       string  `json:"email,omitempty"`
	Affiliation string  `json:"affiliation,omitempty"`
	AuthorOrder int     `json:"authorOrder"`
}

// Authors is a JSONB-backed author collection.
type Authors []Author

func (a Authors) Value() (driver.Value, error) { return json.Marshal(a) }
func (a *Authors) Scan(src interface{}) error  { return scanJSON(a, src) }

// HasUser reports whether any author references the given user id.
func (a Authors) HasUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, author := range a {
		if author.UserID != nil && *author.UserID == userID {
			return true
		}
	}
	return false
}

// Keywords is a JSONB-backed keyword list.
type Keywords []string

func (k Keywords) Value() (driver.Value, error) { return json.Marshal(k) }
func (k *Keywords) Scan(src interface{}) error  { return scanJSON(k, src) }

// Publication represents a research output tracked through the approval
// workflow.
type Publication struct {
	ID              string            `db:"id" json:"id"`
	Title           string            `db:"title" json:"title"`
	Abstract        string            `db:"abstract" json:"abstract,omitempty"`
	Keywords        Keywords          `db:"keywords" json:"keywords,omitempty"`
	PublicationType string            `db:"publication_type" json:"publicationType"`
	Authors         Authors           `db:"authors" json:"authors"`
	SubmittedBy     *string           `db:"submitted_by" json:"submittedBy,omitempty"`
	JournalName     string            `db:"journal_name" json:"journalName,omitempty"`
	Volume          string            `db:"volume" json:"volume,omitempty"`
	Issue           string            `db:"issue" json:"issue,omitempty"`
	Pages           string            `db:"pages" json:"pages,omitempty"`
	DOI             string            `db:"doi" json:"doi,omitempty"`
	PublicationDate *time.Time        `db:"publication_date" json:"publicationDate,omitempty"`
	Status          PublicationStatus `db:"status" json:"status"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments  string            `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt      *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`

	// Derived at read time, never persisted.
	TotalAuthors int       `db:"-" json:"totalAuthors"`
	Submitter    *OwnerRef `db:"-" json:"submitter,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (p *Publication) ApplyDerived() {
	p.TotalAuthors = len(p.Authors)
}

// CanEdit grants mutation rights to the submitter or any author entry.
func (p *Publication) CanEdit(userID string) bool {
	if userID == "" {
		return false
	}
	if p.SubmittedBy != nil && *p.SubmittedBy == userID {
		return true
	}
	return p.Authors.HasUser(userID)
}

// PublicationDetail pairs a publication with resolved display references.
type PublicationDetail struct {
	Publication
	SubmitterName  string `db:"submitter_name" json:"-"`
	SubmitterEmail string `db:"submitter_email" json:"-"`
}

// PublicationFilter captures list query parameters.
type PublicationFilter struct {
	Status          string
	PublicationType string
	AuthorID        string
	Year            int
	Search          string
	Page            int
	Limit           int
	SortBy          string
	SortOrder       string
}

// PublicationStats aggregates counts for the stats endpoint.
type PublicationStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByType   map[string]int `json:"byType"`
	Recent   int            `json:"recent"`
}
