package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TravelGrantStatus enumerates the travel-grant lifecycle.
type TravelGrantStatus string

const (
	TravelGrantDraft       TravelGrantStatus = "Draft"
	TravelGrantSubmitted   TravelGrantStatus = "Submitted"
	TravelGrantUnderReview TravelGrantStatus = "Under Review"
	TravelGrantApproved    TravelGrantStatus = "Approved"
	TravelGrantRejected    TravelGrantStatus = "Rejected"
	TravelGrantCompleted   TravelGrantStatus = "Completed"
)

// TravelGrantWorkflow is the closed status vocabulary for travel grants.
// Approved grants still accept the post-travel report, which completes them.
var TravelGrantWorkflow = Workflow{
	Statuses: []string{
		string(TravelGrantDraft), string(TravelGrantSubmitted), string(TravelGrantUnderReview),
		string(TravelGrantApproved), string(TravelGrantRejected), string(TravelGrantCompleted),
	},
	Initial:  string(TravelGrantDraft),
	Approved: string(TravelGrantApproved),
	Rejected: string(TravelGrantRejected),
	Terminal: []string{string(TravelGrantRejected), string(TravelGrantCompleted)},
}

// TravelPurposes enumerates recognised travel reasons.
var TravelPurposes = []string{"Conference Presentation", "Workshop Attendance", "Research Visit", "Collaboration Meeting", "Other"}

// TravelEvent describes the event the applicant travels to.
type TravelEvent struct {
	Name      string     `json:"name"`
	Venue     string     `json:"venue,omitempty"`
	City      string     `json:"city,omitempty"`
	Country   string     `json:"country,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

func (e TravelEvent) Value() (driver.Value, error) { return json.Marshal(e) }
func (e *TravelEvent) Scan(src interface{}) error  { return scanJSON(e, src) }

// TravelDetails carries itinerary information.
type TravelDetails struct {
	DepartureDate *time.Time `json:"departureDate,omitempty"`
	ReturnDate    *time.Time `json:"returnDate,omitempty"`
	Mode          string     `json:"mode,omitempty"`
}

func (d TravelDetails) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *TravelDetails) Scan(src interface{}) error  { return scanJSON(d, src) }

// GrantFunding names the funding source and the amount sought or granted.
type GrantFunding struct {
	Agency string  `json:"agency,omitempty"`
	Amount float64 `json:"amount"`
}

func (f GrantFunding) Value() (driver.Value, error) { return json.Marshal(f) }
func (f *GrantFunding) Scan(src interface{}) error  { return scanJSON(f, src) }

// BudgetBreakdown itemises the requested budget. Absent line items count
// as zero; an absent breakdown sums to zero.
type BudgetBreakdown struct {
	Airfare        float64 `json:"airfare,omitempty"`
	Accommodation  float64 `json:"accommodation,omitempty"`
	Registration   float64 `json:"registration,omitempty"`
	Meals          float64 `json:"meals,omitempty"`
	VisaFees       float64 `json:"visaFees,omitempty"`
	LocalTransport float64 `json:"localTransport,omitempty"`
	Other          float64 `json:"other,omitempty"`
}

func (b BudgetBreakdown) Value() (driver.Value, error) { return json.Marshal(b) }
func (b *BudgetBreakdown) Scan(src interface{}) error  { return scanJSON(b, src) }

// Sum totals all line items. Safe on the zero value.
func (b BudgetBreakdown) Sum() float64 {
	return b.Airfare + b.Accommodation + b.Registration + b.Meals + b.VisaFees + b.LocalTransport + b.Other
}

// PostTravel captures the report filed after an approved trip.
type PostTravel struct {
	ReportSubmitted bool       `json:"reportSubmitted"`
	ReportDate      *time.Time `json:"reportDate,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	ActualExpense   float64    `json:"actualExpense,omitempty"`
}

func (p PostTravel) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *PostTravel) Scan(src interface{}) error  { return scanJSON(p, src) }

// TravelGrant represents a funded travel application.
type TravelGrant struct {
	ID              string            `db:"id" json:"id"`
	Applicant       *string           `db:"applicant" json:"applicant,omitempty"`
	Purpose         string            `db:"purpose" json:"purpose"`
	Justification   string            `db:"justification" json:"justification,omitempty"`
	Department      string            `db:"department" json:"department"`
	Event           TravelEvent       `db:"event" json:"event"`
	TravelDetails   TravelDetails     `db:"travel_details" json:"travelDetails"`
	Funding         GrantFunding      `db:"funding" json:"funding"`
	BudgetBreakdown BudgetBreakdown   `db:"budget_breakdown" json:"budgetBreakdown"`
	PostTravel      PostTravel        `db:"post_travel" json:"postTravel"`
	Status          TravelGrantStatus `db:"status" json:"status"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments  string            `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt      *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt"`

	// Derived at read time.
	TotalBudget   float64   `db:"-" json:"totalBudget"`
	ApplicantInfo *OwnerRef `db:"-" json:"applicantInfo,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (g *TravelGrant) ApplyDerived() {
	g.TotalBudget = g.BudgetBreakdown.Sum()
}

// CanEdit grants mutation rights to the applicant only.
func (g *TravelGrant) CanEdit(userID string) bool {
	return userID != "" && g.Applicant != nil && *g.Applicant == userID
}

// TravelGrantDetail pairs a grant with resolved display references.
type TravelGrantDetail struct {
	TravelGrant
	ApplicantName  string `db:"applicant_name" json:"-"`
	ApplicantEmail string `db:"applicant_email" json:"-"`
}

// TravelGrantFilter captures list query parameters.
type TravelGrantFilter struct {
	Status      string
	Purpose     string
	Department  string
	ApplicantID string
	Search      string
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}

// TravelGrantStats aggregates counts for the stats endpoint.
type TravelGrantStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	ByPurpose      map[string]int `json:"byPurpose"`
	TotalRequested float64        `json:"totalRequested"`
	Recent         int            `json:"recent"`
}
