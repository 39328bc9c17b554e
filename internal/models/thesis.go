package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ThesisStatus enumerates the thesis supervision lifecycle. The research
// phases between Approved and Submitted are set by ordinary field updates,
// not by the approval endpoints.
type ThesisStatus string

const (
	ThesisProposed       ThesisStatus = "Proposed"
	ThesisApproved       ThesisStatus = "Approved"
	ThesisInProgress     ThesisStatus = "In Progress"
	ThesisDataCollection ThesisStatus = "Data Collection"
	ThesisAnalysis       ThesisStatus = "Analysis"
	ThesisWriting        ThesisStatus = "Writing"
	ThesisSubmitted      ThesisStatus = "Submitted"
	ThesisDefended       ThesisStatus = "Defended"
	ThesisCompleted      ThesisStatus = "Completed"
	ThesisRejected       ThesisStatus = "Rejected"
)

// ThesisWorkflow is the closed status vocabulary for thesis supervisions.
var ThesisWorkflow = Workflow{
	Statuses: []string{
		string(ThesisProposed), string(ThesisApproved), string(ThesisInProgress),
		string(ThesisDataCollection), string(ThesisAnalysis), string(ThesisWriting),
		string(ThesisSubmitted), string(ThesisDefended), string(ThesisCompleted), string(ThesisRejected),
	},
	Initial:  string(ThesisProposed),
	Approved: string(ThesisApproved),
	Rejected: string(ThesisRejected),
	Terminal: []string{string(ThesisCompleted), string(ThesisRejected)},
}

// Defense result vocabulary. A Pass result completes the supervision.
const (
	DefenseResultPass      = "Pass"
	DefenseResultFail      = "Fail"
	DefenseResultRevisions = "Revisions Required"
)

// ThesisDegrees enumerates supported degree programmes.
var ThesisDegrees = []string{"MS", "MPhil", "PhD"}

// ThesisStudent identifies the supervised graduate student.
type ThesisStudent struct {
	UserID         *string `json:"userId,omitempty"`
	Name           string  `json:"name"`
	RegistrationNo string  `json:"registrationNo,omitempty"`
	Email          string  `json:"email,omitempty"`
}

func (s ThesisStudent) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *ThesisStudent) Scan(src interface{}) error  { return scanJSON(s, src) }

// Defense records the outcome of a thesis defense.
type Defense struct {
	Date     *time.Time `json:"date,omitempty"`
	Result   string     `json:"result,omitempty"`
	Comments string     `json:"comments,omitempty"`
}

func (d Defense) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *Defense) Scan(src interface{}) error  { return scanJSON(d, src) }

// ThesisSupervision represents a graduate thesis under supervision.
type ThesisSupervision struct {
	ID                 string        `db:"id" json:"id"`
	Title              string        `db:"title" json:"title"`
	Abstract           string        `db:"abstract" json:"abstract,omitempty"`
	Student            ThesisStudent `db:"student" json:"student"`
	Supervisor         *string       `db:"supervisor" json:"supervisor,omitempty"`
	Committee          Members       `db:"committee" json:"committee,omitempty"`
	Degree             string        `db:"degree" json:"degree"`
	Department         string        `db:"department" json:"department"`
	ResearchArea       string        `db:"research_area" json:"researchArea,omitempty"`
	StartDate          *time.Time    `db:"start_date" json:"startDate,omitempty"`
	ExpectedCompletion *time.Time    `db:"expected_completion" json:"expectedCompletion,omitempty"`
	CompletionDate     *time.Time    `db:"completion_date" json:"completionDate,omitempty"`
	Defense            Defense       `db:"defense" json:"defense"`
	Status             ThesisStatus  `db:"status" json:"status"`
	ReviewedBy         *string       `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments     string        `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt         *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt         *time.Time    `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`

	// Derived at read time.
	DurationMonths int       `db:"-" json:"durationMonths"`
	SupervisorInfo *OwnerRef `db:"-" json:"supervisorInfo,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (t *ThesisSupervision) ApplyDerived() {
	t.DurationMonths = 0
	if t.StartDate != nil && t.ExpectedCompletion != nil && t.ExpectedCompletion.After(*t.StartDate) {
		years := t.ExpectedCompletion.Year() - t.StartDate.Year()
		months := int(t.ExpectedCompletion.Month()) - int(t.StartDate.Month())
		t.DurationMonths = years*12 + months
	}
}

// CanEdit grants mutation rights to the supervisor or any committee member.
func (t *ThesisSupervision) CanEdit(userID string) bool {
	if userID == "" {
		return false
	}
	if t.Supervisor != nil && *t.Supervisor == userID {
		return true
	}
	return t.Committee.HasUser(userID)
}

// ThesisSupervisionDetail pairs a record with resolved display references.
type ThesisSupervisionDetail struct {
	ThesisSupervision
	SupervisorName  string `db:"supervisor_name" json:"-"`
	SupervisorEmail string `db:"supervisor_email" json:"-"`
}

// ThesisFilter captures list query parameters.
type ThesisFilter struct {
	Status       string
	Degree       string
	Department   string
	SupervisorID string
	Search       string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// ThesisStats aggregates counts for the stats endpoint.
type ThesisStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByDegree map[string]int `json:"byDegree"`
	Recent   int            `json:"recent"`
}
