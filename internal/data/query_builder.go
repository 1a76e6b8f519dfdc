package data

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/innovategy/innosystem/db"
)

// QueryBuilder assembles a parameterized SQL query incrementally. It is the
// general path behind Job.QueryJobs; the narrower FindByStatus/
// FindPendingJobs helpers on JobModel are conveniences built the same way by
// hand, per the design notes in SPEC_FULL.md.
type QueryBuilder struct {
	baseQuery           string
	whereClause         string
	whereParams         []interface{}
	sortClause          string
	paginationClause    string
	paginationParams    []interface{}
	forUpdateSkipLocked bool
}

func NewQueryBuilder(query string) *QueryBuilder {
	return &QueryBuilder{baseQuery: query}
}

// AddCondition adds an AND condition to the query. The condition should
// contain a placeholder for the value, e.g. "name = ?", "id > ?".
func (qb *QueryBuilder) AddCondition(condition string, values ...interface{}) *QueryBuilder {
	qb.whereClause = fmt.Sprintf("%s AND %s", qb.whereClause, condition)
	qb.whereParams = append(qb.whereParams, values...)
	return qb
}

// AddSorting adds an ORDER BY clause. prefix is the table alias to qualify
// the sort field with, e.g. "j" for "j.created_at".
func (qb *QueryBuilder) AddSorting(sortField SortField, sortOrder SortOrder, prefix string) *QueryBuilder {
	if sortField != "" {
		qb.sortClause = fmt.Sprintf("ORDER BY %s.%s %s", prefix, sortField, sortOrder)
	}
	return qb
}

// AddPagination adds a LIMIT/OFFSET clause. page is 1-indexed.
func (qb *QueryBuilder) AddPagination(page, pageLimit int) *QueryBuilder {
	if page > 0 && pageLimit > 0 {
		offset := (page - 1) * pageLimit
		qb.paginationClause = "LIMIT ? OFFSET ?"
		qb.paginationParams = append(qb.paginationParams, pageLimit, offset)
	}
	return qb
}

// ForUpdateSkipLocked appends FOR UPDATE SKIP LOCKED, used when a job row
// must be claimed without blocking on a concurrent claimant.
func (qb *QueryBuilder) ForUpdateSkipLocked() *QueryBuilder {
	qb.forUpdateSkipLocked = true
	return qb
}

// Build assembles the final query string (with `?` placeholders) and its
// parameters in order.
func (qb *QueryBuilder) Build() (string, []interface{}) {
	query := qb.baseQuery
	params := []interface{}{}

	if qb.whereClause != "" {
		query = fmt.Sprintf("%s WHERE 1=1%s", query, qb.whereClause)
		params = append(params, qb.whereParams...)
	}
	if qb.sortClause != "" {
		query = fmt.Sprintf("%s %s", query, qb.sortClause)
	}
	if qb.paginationClause != "" {
		query = fmt.Sprintf("%s %s", query, qb.paginationClause)
		params = append(params, qb.paginationParams...)
	}
	if qb.forUpdateSkipLocked {
		query = fmt.Sprintf("%s FOR UPDATE SKIP LOCKED", query)
	}

	return query, params
}

// BuildAndRebind builds the query and rebinds its placeholders to the
// driver's native syntax (`$1`, `$2`, ... for Postgres).
func (qb *QueryBuilder) BuildAndRebind(sqlExec db.SQLExecuter) (string, []interface{}) {
	query, params := qb.Build()
	return sqlExec.Rebind(query), params
}

// BuildSetClause builds a SET clause for an UPDATE statement from the
// non-zero "db"-tagged fields of u.
func BuildSetClause(u interface{}) (string, []interface{}) {
	v := reflect.ValueOf(u)
	t := reflect.TypeOf(u)

	if t.Kind() != reflect.Struct {
		return "", nil
	}

	var setClauses []string
	var params []interface{}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		dbTag := strings.Split(t.Field(i).Tag.Get("db"), ",")[0]
		if dbTag == "" || dbTag == "-" {
			continue
		}
		if !field.IsZero() {
			setClauses = append(setClauses, fmt.Sprintf("%s = ?", dbTag))
			params = append(params, field.Interface())
		}
	}

	return strings.Join(setClauses, ", "), params
}
