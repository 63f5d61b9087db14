package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/repository"
)

// buildPOFilterClause renders the WHERE conditions for a PO listing, numbering
// placeholders from startIndex.
func buildPOFilterClause(filter repository.POFilter, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("%sstatus = $%d", alias, idx))
		args = append(args, string(filter.Status))
		idx++
	}

	if filter.VendorID != "" {
		clauses = append(clauses, fmt.Sprintf("%svendor_id = $%d", alias, idx))
		args = append(args, filter.VendorID)
		idx++
	}

	if filter.RunID != uuid.Nil {
		clauses = append(clauses, fmt.Sprintf("%srun_id = $%d", alias, idx))
		args = append(args, filter.RunID)
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildPagination appends LIMIT/OFFSET for positive values.
func buildPagination(filter repository.POFilter, startIndex int) (string, []interface{}) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	idx := startIndex

	if filter.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET $%d", idx)
		args = append(args, filter.Offset)
	}

	return sb.String(), args
}
