package models

import "time"

// Report module names accepted by the generate/export endpoints.
const (
	ModuleAll           = "all"
	ModulePublications  = "publications"
	ModuleProjects      = "projects"
	ModuleFinalProjects = "finalProjects"
	ModuleTheses        = "theses"
	ModuleEvents        = "events"
	ModuleTravelGrants  = "travelGrants"
)

// ReportModules lists every exportable module in a stable order.
var ReportModules = []string{
	ModulePublications, ModuleProjects, ModuleFinalProjects,
	ModuleTheses, ModuleEvents, ModuleTravelGrants,
}

// DateRange selectors for report generation.
const (
	RangeAllTime     = "all-time"
	RangeThisYear    = "this-year"
	RangeLastYear    = "last-year"
	RangeLast6Months = "last-6-months"
	RangeLast3Months = "last-3-months"
	RangeCustom      = "custom"
)

// ReportFormat enumerates export renderings.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ReportWindow is a resolved inclusive date interval. Nil bounds mean
// unbounded on that side.
type ReportWindow struct {
	Start *time.Time
	End   *time.Time
}

// FundingRecord is the minimal funding projection the rollup works on.
// Amount is zero when the source record carries no funding information.
type FundingRecord struct {
	Source     string     `db:"source" json:"source"`
	Agency     string     `db:"agency" json:"agency"`
	Department string     `db:"department" json:"department"`
	Amount     float64    `db:"amount" json:"amount"`
	Date       *time.Time `db:"funded_at" json:"date,omitempty"`
}

// FundingBucket is one ranked aggregation group.
type FundingBucket struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// FundingTypeStats summarises one record type's funding amounts.
type FundingTypeStats struct {
	Count         int     `json:"count"`
	TotalAmount   float64 `json:"totalAmount"`
	AverageAmount float64 `json:"averageAmount"`
	MinAmount     float64 `json:"minAmount"`
	MaxAmount     float64 `json:"maxAmount"`
}

// FundingStats is the cross-entity funding rollup.
type FundingStats struct {
	GrandTotal   float64          `json:"grandTotal"`
	Projects     FundingTypeStats `json:"projects"`
	TravelGrants FundingTypeStats `json:"travelGrants"`
	ByAgency     []FundingBucket  `json:"byAgency"`
	ByDepartment []FundingBucket  `json:"byDepartment"`
	ByYear       []FundingBucket  `json:"byYear"`
	// YoYGrowthPercent is rounded to the nearest integer; 100 when the
	// prior year's total is zero, 0 with fewer than two years of data.
	YoYGrowthPercent int `json:"yoyGrowthPercent"`
}

// ComprehensiveStats merges every per-entity stats payload.
type ComprehensiveStats struct {
	Publications  PublicationStats  `json:"publications"`
	Projects      ProjectStats      `json:"projects"`
	FinalProjects FinalProjectStats `json:"finalProjects"`
	Theses        ThesisStats       `json:"theses"`
	Events        EventStats        `json:"events"`
	TravelGrants  TravelGrantStats  `json:"travelGrants"`
	Contacts      ContactStats      `json:"contacts"`
	Summary       StatsSummary      `json:"summary"`
}

// StatsSummary is the top-level rollup of the comprehensive response.
type StatsSummary struct {
	TotalRecords int       `json:"totalRecords"`
	TotalFunding float64   `json:"totalFunding"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// ReportBundle is the report payload keyed by module name. Records stay
// typed so renderers can derive columns from their encoding order.
type ReportBundle struct {
	Modules map[string][]interface{} `json:"modules"`
	Summary ReportSummary            `json:"summary"`
}

// ReportSummary counts records per module and in total.
type ReportSummary struct {
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	Range       string         `json:"range"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
