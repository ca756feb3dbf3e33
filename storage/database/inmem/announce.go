package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/announce"
)

type AnnouncementRepository struct {
	db *DB
}

var _ announce.Repository = (*AnnouncementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (db *DB) denormalizeAnnouncement(ann announce.Announcement) announce.Announcement {
	if usr, ok := db.users[ann.CreatedByID]; ok {
		ann.CreatedByName = usr.FullName()
	}
	return ann
}

func (repo AnnouncementRepository) CreateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ann.ID = uuid.New().String()
	repo.db.announcements[ann.ID] = ann
	return repo.db.denormalizeAnnouncement(ann), nil
}

func (repo AnnouncementRepository) GetAnnouncement(ctx context.Context, id string) (announce.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ann, ok := repo.db.announcements[id]; ok {
		return repo.db.denormalizeAnnouncement(ann), nil
	}
	return announce.Announcement{}, announce.ErrNotFound
}

func (repo AnnouncementRepository) QueryAnnouncements(ctx context.Context, filter *announce.QueryFilter, ordering []core.DBOrdering) ([]announce.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	anns := make([]announce.Announcement, 0, len(repo.db.announcements))
	for _, ann := range repo.db.announcements {
		if filter != nil {
			if len(filter.Audiences) > 0 && !containsString(filter.Audiences, ann.Audience) {
				continue
			}
			if filter.Search != "" && !matches(filter.Search, ann.Title, ann.Message, ann.Type, ann.Audience) {
				continue
			}
		}
		anns = append(anns, repo.db.denormalizeAnnouncement(ann))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	orderSlice(anns, ordering, func(i, j int, field string) int {
		a, b := anns[i], anns[j]
		switch field {
		case "title":
			return compareStrings(a.Title, b.Title)
		case "type":
			return compareStrings(a.Type, b.Type)
		case "audience":
			return compareStrings(a.Audience, b.Audience)
		case "created_at":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		}
		return 0
	})
	return anns, nil
}

func (repo AnnouncementRepository) UpdateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[ann.ID]; !ok {
		return announce.Announcement{}, announce.ErrNotFound
	}
	repo.db.announcements[ann.ID] = ann
	return repo.db.denormalizeAnnouncement(ann), nil
}

func (repo AnnouncementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return announce.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
