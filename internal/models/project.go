package models

import (
	"time"
)

// ProjectStatus enumerates the funded-project lifecycle.
type ProjectStatus string

const (
	ProjectProposed    ProjectStatus = "Proposed"
	ProjectSubmitted   ProjectStatus = "Submitted"
	ProjectUnderReview ProjectStatus = "Under Review"
	ProjectApproved    ProjectStatus = "Approved"
	ProjectActive      ProjectStatus = "Active"
	ProjectCompleted   ProjectStatus = "Completed"
	ProjectTerminated  ProjectStatus = "Terminated"
	ProjectSuspended   ProjectStatus = "Suspended"
	ProjectRejected    ProjectStatus = "Rejected"
)

// ProjectWorkflow is the closed status vocabulary for funded projects.
// Approved is not terminal here: an approved project still moves through
// Active/Completed by ordinary field updates.
var ProjectWorkflow = Workflow{
	Statuses: []string{
		string(ProjectProposed), string(ProjectSubmitted), string(ProjectUnderReview),
		string(ProjectApproved), string(ProjectActive), string(ProjectCompleted),
		string(ProjectTerminated), string(ProjectSuspended), string(ProjectRejected),
	},
	Initial:  string(ProjectProposed),
	Approved: string(ProjectApproved),
	Rejected: string(ProjectRejected),
	Terminal: []string{string(ProjectCompleted), string(ProjectTerminated), string(ProjectRejected)},
}

// projectCompletion maps status to an indicative completion percentage.
var projectCompletion = map[ProjectStatus]int{
	ProjectProposed:    0,
	ProjectSubmitted:   5,
	ProjectUnderReview: 10,
	ProjectApproved:    15,
	ProjectActive:      50,
	ProjectSuspended:   50,
	ProjectCompleted:   100,
	ProjectTerminated:  100,
	ProjectRejected:    0,
}

// FundedProject represents an externally funded research project.
type FundedProject struct {
	ID                    string        `db:"id" json:"id"`
	Title                 string        `db:"title" json:"title"`
	Description           string        `db:"description" json:"description,omitempty"`
	PrincipalInvestigator *string       `db:"principal_investigator" json:"principalInvestigator,omitempty"`
	CoPIs                 Members       `db:"co_pis" json:"coPIs,omitempty"`
	TeamMembers           Members       `db:"team_members" json:"teamMembers,omitempty"`
	FundingAgency         string        `db:"funding_agency" json:"fundingAgency"`
	GrantNumber           string        `db:"grant_number" json:"grantNumber,omitempty"`
	Department            string        `db:"department" json:"department"`
	TotalBudget           float64       `db:"total_budget" json:"totalBudget"`
	StartDate             *time.Time    `db:"start_date" json:"startDate,omitempty"`
	EndDate               *time.Time    `db:"end_date" json:"endDate,omitempty"`
	Status                ProjectStatus `db:"status" json:"status"`
	ReviewedBy            *string       `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments        string        `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt            *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt            *time.Time    `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt             time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updatedAt"`

	// Derived at read time.
	DurationMonths    int       `db:"-" json:"durationMonths"`
	CompletionPercent int       `db:"-" json:"completionPercent"`
	Investigator      *OwnerRef `db:"-" json:"investigator,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (p *FundedProject) ApplyDerived() {
	p.DurationMonths = 0
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.After(*p.StartDate) {
		years := p.EndDate.Year() - p.StartDate.Year()
		months := int(p.EndDate.Month()) - int(p.StartDate.Month())
		p.DurationMonths = years*12 + months
	}
	p.CompletionPercent = projectCompletion[p.Status]
}

// CanEdit grants mutation rights to the PI, any co-PI, or any team member.
func (p *FundedProject) CanEdit(userID string) bool {
	if userID == "" {
		return false
	}
	if p.PrincipalInvestigator != nil && *p.PrincipalInvestigator == userID {
		return true
	}
	return p.CoPIs.HasUser(userID) || p.TeamMembers.HasUser(userID)
}

// FundedProjectDetail pairs a project with resolved display references.
type FundedProjectDetail struct {
	FundedProject
	PIName  string `db:"pi_name" json:"-"`
	PIEmail string `db:"pi_email" json:"-"`
}

// ProjectFilter captures list query parameters for funded projects.
type ProjectFilter struct {
	Status         string
	FundingAgency  string
	Department     string
	InvestigatorID string
	Search         string
	Page           int
	Limit          int
	SortBy         string
	SortOrder      string
}

// ProjectStats aggregates counts for the stats endpoint.
type ProjectStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	ByDepartment map[string]int `json:"byDepartment"`
	TotalFunding float64        `json:"totalFunding"`
	Recent       int            `json:"recent"`
}
