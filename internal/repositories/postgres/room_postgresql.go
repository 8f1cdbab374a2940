package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
)

type RoomPostgreSQL struct {
	db *gorm.DB
}

func NewRoomPostgreSQL(db *gorm.DB) repositories.RoomRepository {
	return &RoomPostgreSQL{db: db}
}

func (r *RoomPostgreSQL) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *RoomPostgreSQL) GetByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomPostgreSQL) GetByStudentCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "student_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomPostgreSQL) GetByTeacherCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "teacher_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomPostgreSQL) Update(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *RoomPostgreSQL) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Room{}, "id = ?", id).Error
}

func (r *RoomPostgreSQL) GetByOwner(ctx context.Context, ownerID string) ([]*models.Room, error) {
	var rooms []*models.Room
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// ===== MEMBERSHIPS =====

func (r *RoomPostgreSQL) AddMembership(ctx context.Context, membership *models.RoomMembership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *RoomPostgreSQL) RemoveMembership(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMembership{}).Error
}

func (r *RoomPostgreSQL) GetMembership(ctx context.Context, roomID, userID string) (*models.RoomMembership, error) {
	var membership models.RoomMembership
	if err := r.db.WithContext(ctx).
		First(&membership, "room_id = ? AND user_id = ?", roomID, userID).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *RoomPostgreSQL) GetMemberships(ctx context.Context, roomID string) ([]*models.RoomMembership, error) {
	var memberships []*models.RoomMembership
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *RoomPostgreSQL) GetMembershipsByUser(ctx context.Context, userID string) ([]*models.RoomMembership, error) {
	var memberships []*models.RoomMembership
	if err := r.db.WithContext(ctx).
		Preload("Room").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}
