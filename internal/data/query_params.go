package data

import "fmt"

// JobQueryParams is the general filter/sort/pagination surface for
// Job.QueryJobs (spec §4.1: "query-with-filter"), supplemented from
// original_source's query_jobs with a created-at window and
// completed/failed-only shortcuts (see SPEC_FULL.md §9).
type JobQueryParams struct {
	Page      int
	PageLimit int
	SortBy    SortField
	SortOrder SortOrder
	Filters   map[FilterKey]interface{}
}

type SortOrder string

const (
	SortOrderASC  SortOrder = "ASC"
	SortOrderDESC SortOrder = "DESC"
)

type SortField string

const (
	SortFieldCreatedAt SortField = "created_at"
	SortFieldPriority  SortField = "priority"
)

type FilterKey string

const (
	FilterKeyCustomerID      FilterKey = "customer_id"
	FilterKeyJobTypeID       FilterKey = "job_type_id"
	FilterKeyStatus          FilterKey = "status"
	FilterKeyCreatedAtAfter  FilterKey = "created_at_after"
	FilterKeyCreatedAtBefore FilterKey = "created_at_before"
	FilterKeyCompletedOnly   FilterKey = "completed_only"
	FilterKeyFailedOnly      FilterKey = "failed_only"
)

func (fk FilterKey) Equals() string {
	return fmt.Sprintf("%s = ?", fk)
}

func (fk FilterKey) GreaterOrEqual() string {
	return fmt.Sprintf("%s >= ?", fk)
}

func (fk FilterKey) LowerOrEqual() string {
	return fmt.Sprintf("%s <= ?", fk)
}

func (fk FilterKey) IsNotNull() string {
	return fmt.Sprintf("%s IS NOT NULL", fk)
}
