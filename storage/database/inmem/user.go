package inmem

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type UserRepository struct {
	db *DB
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo UserRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.checkUsernameUniqueness(username, excludedUsers...)
}

func (db *DB) checkUsernameUniqueness(username string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range db.users {
		if !excluded[usr.ID] && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.db.checkUsernameUniqueness(usr.Username); err != nil {
		return user.User{}, err
	}
	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo UserRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
	case filter.Username != "":
		for _, usr := range repo.db.users {
			if strings.EqualFold(usr.Username, filter.Username) {
				return usr, nil
			}
		}
	case filter.UsernameOrEmail != "":
		for _, usr := range repo.db.users {
			if strings.EqualFold(usr.Username, filter.UsernameOrEmail) ||
				(usr.Email != "" && strings.EqualFold(usr.Email, filter.UsernameOrEmail)) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo UserRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if filter.Search != "" && !matches(filter.Search, usr.Username, usr.Email, usr.FirstName, usr.LastName) {
				continue
			}
		}
		users = append(users, usr)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	orderSlice(users, ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "username":
			return compareStrings(a.Username, b.Username)
		case "email":
			return compareStrings(a.Email, b.Email)
		case "first_name":
			return compareStrings(a.FirstName, b.FirstName)
		case "last_name":
			return compareStrings(a.LastName, b.LastName)
		case "role":
			return compareStrings(a.Role, b.Role)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return users, nil
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.db.checkUsernameUniqueness(usr.Username, usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo UserRepository) DeleteUser(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.users, id)

	// cascade, mirroring the schema's ON DELETE CASCADE chains
	for sid, std := range repo.db.students {
		if std.UserID == id {
			repo.db.deleteStudent(sid)
		}
	}
	for cid, cls := range repo.db.classes {
		if cls.TeacherID == id {
			repo.db.deleteClass(cid)
		}
	}
	for rid, rec := range repo.db.records {
		if rec.RecordedByID == id {
			delete(repo.db.records, rid)
		}
	}
	for aid, ann := range repo.db.announcements {
		if ann.CreatedByID == id {
			delete(repo.db.announcements, aid)
		}
	}
	return nil
}

func (repo UserRepository) AdminExists(ctx context.Context) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

func (repo UserRepository) HasRoleDependents(ctx context.Context, id string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, std := range repo.db.students {
		if std.UserID == id {
			return true, nil
		}
	}
	for _, cls := range repo.db.classes {
		if cls.TeacherID == id {
			return true, nil
		}
	}
	for _, rec := range repo.db.records {
		if rec.RecordedByID == id {
			return true, nil
		}
	}
	for _, ann := range repo.db.announcements {
		if ann.CreatedByID == id {
			return true, nil
		}
	}
	return false, nil
}
