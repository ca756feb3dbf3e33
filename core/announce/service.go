package announce

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		// QueryAnnouncements returns matches in reverse chronological order
		// unless an explicit ordering is given.
		QueryAnnouncements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stamps the author onto the new announcement.
func (svc *Service) Create(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error) {
	now := time.Now().UTC()
	return svc.repo.CreateAnnouncement(ctx, Announcement{
		Title:       na.Title,
		Message:     na.Message,
		Type:        na.Type,
		Audience:    na.Audience,
		CreatedByID: createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// GetFor fetches an announcement as seen by the given role: one hidden by
// the audience projection reads as not found, so its existence never leaks.
func (svc *Service) GetFor(ctx context.Context, id, role string) (Announcement, error) {
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !ann.VisibleTo(role) {
		return Announcement{}, ErrNotFound
	}
	return ann, nil
}

// QueryFor lists announcements through the audience projection of the given
// role.
func (svc *Service) QueryFor(ctx context.Context, role string, filter *QueryFilter, ordering []core.DBOrdering) ([]Announcement, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Audiences = AudiencesFor(role)
	return svc.repo.QueryAnnouncements(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, orig Announcement, ua UpdateAnnouncement) (Announcement, error) {
	ann := orig
	if title := core.CleanString(ua.Title); title != "" {
		ann.Title = title
	}
	if msg := core.CleanString(ua.Message); msg != "" {
		ann.Message = msg
	}
	if ua.Type != "" {
		ann.Type = ua.Type
	}
	if ua.Audience != "" {
		ann.Audience = ua.Audience
	}
	ann.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAnnouncement(ctx, ann)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAnnouncement(ctx, id)
}
