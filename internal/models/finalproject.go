package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// FinalProjectStatus enumerates the final-year project lifecycle.
type FinalProjectStatus string

const (
	FinalProjectProposed   FinalProjectStatus = "Proposed"
	FinalProjectApproved   FinalProjectStatus = "Approved"
	FinalProjectInProgress FinalProjectStatus = "In Progress"
	FinalProjectCompleted  FinalProjectStatus = "Completed"
	FinalProjectGraded     FinalProjectStatus = "Graded"
	FinalProjectRejected   FinalProjectStatus = "Rejected"
)

// FinalProjectWorkflow is the closed status vocabulary for final-year
// projects. In Progress and Completed are reached by ordinary updates;
// Graded only through the grading sub-resource.
var FinalProjectWorkflow = Workflow{
	Statuses: []string{
		string(FinalProjectProposed), string(FinalProjectApproved), string(FinalProjectInProgress),
		string(FinalProjectCompleted), string(FinalProjectGraded), string(FinalProjectRejected),
	},
	Initial:  string(FinalProjectProposed),
	Approved: string(FinalProjectApproved),
	Rejected: string(FinalProjectRejected),
	Terminal: []string{string(FinalProjectGraded), string(FinalProjectRejected)},
}

// ProjectStudent identifies a student working on a final-year project.
type ProjectStudent struct {
	UserID  *string `json:"userId,omitempty"`
	Name    string  `json:"name"`
	RollNo  string  `json:"rollNo,omitempty"`
	Email   string  `json:"email,omitempty"`
	Program string  `json:"program,omitempty"`
}

// ProjectStudents is a JSONB-backed student collection.
type ProjectStudents []ProjectStudent

func (s ProjectStudents) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *ProjectStudents) Scan(src interface{}) error  { return scanJSON(s, src) }

// Evaluation records the grading outcome of a final-year project.
type Evaluation struct {
	Grade       string     `json:"grade,omitempty"`
	Marks       float64    `json:"marks,omitempty"`
	Remarks     string     `json:"remarks,omitempty"`
	EvaluatedBy *string    `json:"evaluatedBy,omitempty"`
	EvaluatedAt *time.Time `json:"evaluatedAt,omitempty"`
}

func (e Evaluation) Value() (driver.Value, error) { return json.Marshal(e) }
func (e *Evaluation) Scan(src interface{}) error  { return scanJSON(e, src) }

// Deliverable is a dated project milestone artifact.
type Deliverable struct {
	Name      string     `json:"name"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Submitted bool       `json:"submitted"`
}

// Deliverables is a JSONB-backed deliverable collection.
type Deliverables []Deliverable

func (d Deliverables) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *Deliverables) Scan(src interface{}) error  { return scanJSON(d, src) }

// FinalYearProject represents a supervised undergraduate capstone project.
type FinalYearProject struct {
	ID             string             `db:"id" json:"id"`
	Title          string             `db:"title" json:"title"`
	Description    string             `db:"description" json:"description,omitempty"`
	Supervisor     *string            `db:"supervisor" json:"supervisor,omitempty"`
	CoSupervisors  Members            `db:"co_supervisors" json:"coSupervisors,omitempty"`
	Students       ProjectStudents    `db:"students" json:"students"`
	Batch          string             `db:"batch" json:"batch"`
	Department     string             `db:"department" json:"department"`
	Technologies   Keywords           `db:"technologies" json:"technologies,omitempty"`
	Evaluation     Evaluation         `db:"evaluation" json:"evaluation"`
	Deliverables   Deliverables       `db:"deliverables" json:"deliverables,omitempty"`
	StartDate      *time.Time         `db:"start_date" json:"startDate,omitempty"`
	EndDate        *time.Time         `db:"end_date" json:"endDate,omitempty"`
	Status         FinalProjectStatus `db:"status" json:"status"`
	ReviewedBy     *string            `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewComments string             `db:"review_comments" json:"reviewComments,omitempty"`
	ApprovedAt     *time.Time         `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt     *time.Time         `db:"rejected_at" json:"rejectedAt,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`

	// Derived at read time.
	TotalStudents  int       `db:"-" json:"totalStudents"`
	SupervisorInfo *OwnerRef `db:"-" json:"supervisorInfo,omitempty"`
}

// ApplyDerived recomputes virtual attributes from stored fields.
func (p *FinalYearProject) ApplyDerived() {
	p.TotalStudents = len(p.Students)
}

// CanEdit grants mutation rights to the supervisor or any co-supervisor.
func (p *FinalYearProject) CanEdit(userID string) bool {
	if userID == "" {
		return false
	}
	if p.Supervisor != nil && *p.Supervisor == userID {
		return true
	}
	return p.CoSupervisors.HasUser(userID)
}

// FinalYearProjectDetail pairs a record with resolved display references.
type FinalYearProjectDetail struct {
	FinalYearProject
	SupervisorName  string `db:"supervisor_name" json:"-"`
	SupervisorEmail string `db:"supervisor_email" json:"-"`
}

// FinalProjectFilter captures list query parameters.
type FinalProjectFilter struct {
	Status       string
	Batch        string
	Department   string
	SupervisorID string
	Search       string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// FinalProjectStats aggregates counts for the stats endpoint.
type FinalProjectStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByBatch  map[string]int `json:"byBatch"`
	Recent   int            `json:"recent"`
}
