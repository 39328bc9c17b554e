package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination normalises page/limit and derives totals. Zero or negative
// page and limit fall back to defaults rather than erroring.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

const (
	// DefaultPageSize applies when a list request omits or zeroes the limit.
	DefaultPageSize = 10
	// MaxPageSize bounds caller-supplied limits.
	MaxPageSize = 100
)

// Actor identifies the authenticated caller for authorization decisions.
// Identity always travels as an explicit parameter into services.
type Actor struct {
	ID   string
	Role UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Editable reports whether a record may be mutated by the given user.
// Each record type enumerates its own owner and co-owner fields behind
// this single capability.
type Editable interface {
	CanEdit(userID string) bool
}

// Member is a weak reference to a participant. UserID may be nil or point
// at a deleted account; Name and Email keep the record displayable.
type Member struct {
	UserID *string `json:"userId,omitempty"`
	Name   string  `json:"name"`
	Email  string  `json:"email,omitempty"`
}

// Members is a JSONB-backed collection of participants.
type Members []Member

func (m Members) Value() (driver.Value, error) { return json.Marshal(m) }
func (m *Members) Scan(src interface{}) error  { return scanJSON(m, src) }

// HasUser reports whether any member references the given user id.
func (m Members) HasUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, member := range m {
		if member.UserID != nil && *member.UserID == userID {
			return true
		}
	}
	return false
}

// Workflow describes a record type's closed status vocabulary and the
// states the approval endpoints operate on.
type Workflow struct {
	Statuses []string
	Initial  string
	Approved string
	Rejected string
	Terminal []string
}

// Legal reports whether the status belongs to the vocabulary.
func (w Workflow) Legal(status string) bool {
	for _, s := range w.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the approval lifecycle.
func (w Workflow) IsTerminal(status string) bool {
	for _, s := range w.Terminal {
		if s == status {
			return true
		}
	}
	return false
}

// CanDecide reports whether approve/reject may act from the given state.
func (w Workflow) CanDecide(status string) bool {
	return w.Legal(status) && !w.IsTerminal(status)
}

func scanJSON(dest interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
