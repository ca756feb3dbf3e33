package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/announce"
)

type announcementRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Message       string    `db:"message"`
	Type          string    `db:"type"`
	Audience      string    `db:"audience"`
	CreatedByID   string    `db:"created_by_id"`
	CreatedByName string    `db:"created_by_name"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r announcementRow) unpack() announce.Announcement {
	return announce.Announcement{
		ID:            r.ID,
		Title:         r.Title,
		Message:       r.Message,
		Type:          r.Type,
		Audience:      r.Audience,
		CreatedByID:   r.CreatedByID,
		CreatedByName: r.CreatedByName,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

const announcementSelect = `
	SELECT a.id, a.title, a.message, a.type, a.audience, a.created_by_id,
	       a.created_at, a.updated_at,
	       TRIM(u.first_name || ' ' || u.last_name) AS created_by_name
	FROM announcement a
	JOIN "user" u ON u.id = a.created_by_id`

type AnnouncementRepository struct {
	db *sqlx.DB
}

var _ announce.Repository = (*AnnouncementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (repo AnnouncementRepository) CreateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	ann.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO announcement (id, title, message, type, audience, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ann.ID, ann.Title, ann.Message, ann.Type, ann.Audience, ann.CreatedByID,
		ann.CreatedAt, ann.UpdatedAt,
	)
	if err != nil {
		return announce.Announcement{}, storeErr(err, "inserting announcement")
	}
	return repo.GetAnnouncement(ctx, ann.ID)
}

func (repo AnnouncementRepository) GetAnnouncement(ctx context.Context, id string) (announce.Announcement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return announce.Announcement{}, announce.ErrNotFound
	}
	var row announcementRow
	err := retryOnce(func() error {
		return sqlx.GetContext(ctx, repo.db, &row, announcementSelect+` WHERE a.id = $1`, id)
	})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return announce.Announcement{}, announce.ErrNotFound
		}
		return announce.Announcement{}, storeErr(err, "finding announcement")
	}
	return row.unpack(), nil
}

func (repo AnnouncementRepository) QueryAnnouncements(ctx context.Context, filter *announce.QueryFilter, ordering []core.DBOrdering) ([]announce.Announcement, error) {
	query := announcementSelect
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.Search != "" {
			args = append(args, searchPattern(filter.Search))
			conds = append(conds, placeholdered(
				`(a.title ILIKE $%[1]d OR a.message ILIKE $%[1]d OR a.type ILIKE $%[1]d OR a.audience ILIKE $%[1]d)`,
				len(args)))
		}
		if len(filter.Audiences) > 0 {
			args = append(args, stringArray(filter.Audiences))
			conds = append(conds, placeholdered(`a.audience = ANY($%d)`, len(args)))
		}
	}
	query += where(conds) + orderBy(ordering, "a.created_at DESC")

	var rows []announcementRow
	err := retryOnce(func() error {
		rows = rows[:0]
		return sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	})
	if err != nil {
		return nil, storeErr(err, "querying announcements")
	}

	anns := make([]announce.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.unpack())
	}
	return anns, nil
}

func (repo AnnouncementRepository) UpdateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE announcement
		SET title = $2, message = $3, type = $4, audience = $5, updated_at = $6
		WHERE id = $1`,
		ann.ID, ann.Title, ann.Message, ann.Type, ann.Audience, ann.UpdatedAt,
	)
	if err != nil {
		return announce.Announcement{}, storeErr(err, "updating announcement")
	}
	return ann, nil
}

func (repo AnnouncementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM announcement WHERE id = $1`, id)
	if err != nil {
		return storeErr(err, "deleting announcement")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return announce.ErrNotFound
	}
	return nil
}
