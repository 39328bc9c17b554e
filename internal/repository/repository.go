package repository

import (
	"fmt"
	"time"

	"github.com/noah-isme/research-admin-api/internal/models"
)

// bucketRow scans a single GROUP BY aggregation row.
type bucketRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// clampPage normalises pagination inputs. Zero or negative values fall
// back to defaults; the limit is capped.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}
	return page, limit
}

// windowConditions builds date-bound predicates for the given column
// expression. Positional argument numbering starts at 1.
func windowConditions(column string, start, end *time.Time) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if start != nil {
		args = append(args, *start)
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if end != nil {
		args = append(args, *end)
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	return conditions, args
}
