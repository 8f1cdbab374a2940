package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// AnnouncementService manages room announcements with likes and comments.
type AnnouncementService interface {
	Create(ctx context.Context, req *CreateAnnouncementRequest, author *models.User) (*models.Announcement, error)
	GetByRoom(ctx context.Context, roomID, userID string) ([]*models.Announcement, error)
	Delete(ctx context.Context, announcementID, userID string) error

	ToggleLike(ctx context.Context, announcementID, userID string) (*models.Announcement, error)
	AddComment(ctx context.Context, announcementID string, req *AddCommentRequest, user *models.User) (*models.Announcement, error)
}

type CreateAnnouncementRequest struct {
	RoomID  string `json:"room_id" validate:"required"`
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Content string `json:"content" validate:"required"`

	AllowComments *bool `json:"allow_comments"`
	AllowLikes    *bool `json:"allow_likes"`
}

type AddCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

type announcementService struct {
	repo          repositories.Repository
	rooms         RoomService
	notifications NotificationService
	logger        *slog.Logger
	validator     *validator.Validator
	now           func() time.Time
}

func NewAnnouncementService(
	repo repositories.Repository,
	rooms RoomService,
	notifications NotificationService,
	logger *slog.Logger,
	v *validator.Validator,
) AnnouncementService {
	return &announcementService{
		repo:          repo,
		rooms:         rooms,
		notifications: notifications,
		logger:        logger,
		validator:     v,
		now:           time.Now,
	}
}

func (s *announcementService) Create(ctx context.Context, req *CreateAnnouncementRequest, author *models.User) (*models.Announcement, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	room, err := s.repo.Room().GetByID(ctx, req.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !s.rooms.IsTeacher(ctx, room, author.ID) {
		return nil, NewPermissionError(author.ID, room.ID, "announcement", "create", "not a teacher of this room")
	}

	announcement := &models.Announcement{
		ID:            uuid.NewString(),
		RoomID:        req.RoomID,
		Title:         req.Title,
		Content:       req.Content,
		AuthorID:      author.ID,
		AuthorName:    author.DisplayName(),
		AllowComments: true,
		AllowLikes:    true,
		Likes:         datatypes.JSON("[]"),
		Comments:      datatypes.JSON("[]"),
	}
	if req.AllowComments != nil {
		announcement.AllowComments = *req.AllowComments
	}
	if req.AllowLikes != nil {
		announcement.AllowLikes = *req.AllowLikes
	}

	if err := s.repo.Announcement().Create(ctx, announcement); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	s.logger.Info("Announcement created",
		"announcement_id", announcement.ID,
		"room_id", req.RoomID)

	if err := s.notifications.NotifyAnnouncementPosted(ctx, room, announcement); err != nil {
		s.logger.Error("Failed to notify announcement posted",
			"announcement_id", announcement.ID,
			"error", err)
	}
	return announcement, nil
}

func (s *announcementService) GetByRoom(ctx context.Context, roomID, userID string) ([]*models.Announcement, error) {
	member, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(userID, roomID, "room", "list announcements", "not a member")
	}
	return s.repo.Announcement().GetByRoom(ctx, roomID)
}

func (s *announcementService) Delete(ctx context.Context, announcementID, userID string) error {
	announcement, err := s.repo.Announcement().GetByID(ctx, announcementID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAnnouncementNotFound
		}
		return fmt.Errorf("failed to get announcement: %w", err)
	}

	room, err := s.repo.Room().GetByID(ctx, announcement.RoomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}
	if announcement.AuthorID != userID && !s.rooms.IsTeacher(ctx, room, userID) {
		return NewPermissionError(userID, announcementID, "announcement", "delete", "not the author or a teacher")
	}

	return s.repo.Announcement().Delete(ctx, announcementID)
}

func (s *announcementService) ToggleLike(ctx context.Context, announcementID, userID string) (*models.Announcement, error) {
	announcement, err := s.getForMember(ctx, announcementID, userID)
	if err != nil {
		return nil, err
	}
	if !announcement.AllowLikes {
		return announcement, nil
	}

	var likes []string
	if len(announcement.Likes) > 0 {
		if err := json.Unmarshal(announcement.Likes, &likes); err != nil {
			return nil, fmt.Errorf("failed to decode likes: %w", err)
		}
	}

	found := false
	filtered := likes[:0]
	for _, id := range likes {
		if id == userID {
			found = true
			continue
		}
		filtered = append(filtered, id)
	}
	if !found {
		filtered = append(filtered, userID)
	}

	data, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to encode likes: %w", err)
	}
	announcement.Likes = data

	if err := s.repo.Announcement().Update(ctx, announcement); err != nil {
		return nil, fmt.Errorf("failed to update likes: %w", err)
	}
	return announcement, nil
}

func (s *announcementService) AddComment(ctx context.Context, announcementID string, req *AddCommentRequest, user *models.User) (*models.Announcement, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	announcement, err := s.getForMember(ctx, announcementID, user.ID)
	if err != nil {
		return nil, err
	}
	if !announcement.AllowComments {
		return nil, ErrAnnouncementCommentsClosed
	}

	var comments []models.AnnouncementComment
	if len(announcement.Comments) > 0 {
		if err := json.Unmarshal(announcement.Comments, &comments); err != nil {
			return nil, fmt.Errorf("failed to decode comments: %w", err)
		}
	}
	comments = append(comments, models.AnnouncementComment{
		UserID:    user.ID,
		UserName:  user.DisplayName(),
		Text:      req.Text,
		CreatedAt: s.now(),
	})

	data, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}
	announcement.Comments = data

	if err := s.repo.Announcement().Update(ctx, announcement); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return announcement, nil
}

func (s *announcementService) getForMember(ctx context.Context, announcementID, userID string) (*models.Announcement, error) {
	announcement, err := s.repo.Announcement().GetByID(ctx, announcementID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	member, err := s.rooms.IsMember(ctx, announcement.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(userID, announcementID, "announcement", "access", "not a member of the room")
	}
	return announcement, nil
}
