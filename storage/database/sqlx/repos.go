// Package sqlxrepos implements the domain repositories against Postgres
// using hand-written SQL through sqlx.
package sqlxrepos

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const (
	pqUniqueViolation = pq.ErrorCode("23505")
	pqFKViolation     = pq.ErrorCode("23503")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isFKViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqFKViolation
}

func violatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// storeErr wraps unexpected database errors as transient store failures.
func storeErr(err error, msg string) error {
	return core.NewStoreError(errors.Wrap(err, msg))
}

// retryOnce re-runs fn once when the driver lost its connection.
func retryOnce(fn func() error) error {
	err := fn()
	if errors.Cause(err) == driver.ErrBadConn {
		err = fn()
	}
	return err
}

// orderBy renders an ORDER BY clause from pre-validated column orderings;
// deflt is used when none are given.
func orderBy(ordering []core.DBOrdering, deflt string) string {
	if len(ordering) == 0 {
		if deflt == "" {
			return ""
		}
		return " ORDER BY " + deflt
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func searchPattern(s string) string {
	return "%" + s + "%"
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// placeholdered formats a condition holding a single positional placeholder.
func placeholdered(format string, n int) string {
	return fmt.Sprintf(format, n)
}

func stringArray(ss []string) interface{} {
	return pq.Array(ss)
}
