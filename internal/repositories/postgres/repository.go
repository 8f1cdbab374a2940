package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/orvit/classroom-service/internal/repositories"
)

// Repository is the gorm-backed aggregate of all entity repositories.
type Repository struct {
	db *gorm.DB

	user         repositories.UserRepository
	room         repositories.RoomRepository
	test         repositories.TestRepository
	assignment   repositories.AssignmentRepository
	submission   repositories.SubmissionRepository
	announcement repositories.AnnouncementRepository
	notification repositories.NotificationRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		user:         NewUserPostgreSQL(db),
		room:         NewRoomPostgreSQL(db),
		test:         NewTestPostgreSQL(db),
		assignment:   NewAssignmentPostgreSQL(db),
		submission:   NewSubmissionPostgreSQL(db),
		announcement: NewAnnouncementPostgreSQL(db),
		notification: NewNotificationPostgreSQL(db),
	}
}

func (r *Repository) User() repositories.UserRepository                 { return r.user }
func (r *Repository) Room() repositories.RoomRepository                 { return r.room }
func (r *Repository) Test() repositories.TestRepository                 { return r.test }
func (r *Repository) Assignment() repositories.AssignmentRepository     { return r.assignment }
func (r *Repository) Submission() repositories.SubmissionRepository     { return r.submission }
func (r *Repository) Announcement() repositories.AnnouncementRepository { return r.announcement }
func (r *Repository) Notification() repositories.NotificationRepository { return r.notification }

func (r *Repository) Transaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// applyPagination applies limit/offset with a sane default page size.
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return query.Limit(limit).Offset(offset)
}

// applySort orders by an allow-listed column, newest first by default.
func applySort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool) *gorm.DB {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return query.Order(sortBy + " " + sortOrder)
}
