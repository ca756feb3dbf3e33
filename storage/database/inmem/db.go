// Package inmem implements the domain repositories in memory. It backs the
// API test suite and keeps the same semantics as the Postgres repositories:
// uniqueness checks, referential cascade on delete and default orderings.
package inmem

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/announce"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mu sync.RWMutex

	users         map[string]user.User
	subjects      map[string]school.Subject
	classes       map[string]school.Class
	students      map[string]school.Student
	enrollments   map[string]map[string]bool // student id -> class ids
	records       map[string]attendance.Record
	announcements map[string]announce.Announcement
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]user.User),
		subjects:      make(map[string]school.Subject),
		classes:       make(map[string]school.Class),
		students:      make(map[string]school.Student),
		enrollments:   make(map[string]map[string]bool),
		records:       make(map[string]attendance.Record),
		announcements: make(map[string]announce.Announcement),
	}
}

// Clear empties all tables; tests call it between cases.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = make(map[string]user.User)
	db.subjects = make(map[string]school.Subject)
	db.classes = make(map[string]school.Class)
	db.students = make(map[string]school.Student)
	db.enrollments = make(map[string]map[string]bool)
	db.records = make(map[string]attendance.Record)
	db.announcements = make(map[string]announce.Announcement)
}

func matches(search string, fields ...string) bool {
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// baseField strips a table alias off a column reference so in-memory sorting
// keys on the same names the SQL repositories order by.
func baseField(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}

// orderSlice sorts rows by the given orderings using the per-field comparator;
// cmp returns -1, 0 or 1 for rows i and j on a field. Unknown fields are
// skipped, matching a pre-validated ordering whitelist upstream.
func orderSlice(slice interface{}, ordering []core.DBOrdering, cmp func(i, j int, field string) int) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, baseField(ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
