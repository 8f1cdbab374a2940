package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// RoomService manages rooms, join codes and memberships.
type RoomService interface {
	Create(ctx context.Context, req *CreateRoomRequest, ownerID string) (*models.Room, error)
	GetByID(ctx context.Context, roomID, userID string) (*models.Room, error)
	Update(ctx context.Context, roomID string, req *UpdateRoomRequest, userID string) (*models.Room, error)
	Delete(ctx context.Context, roomID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]*models.Room, error)

	// Join enrolls a user into the room matching the code. Student codes
	// enroll as student, teacher codes as co-teacher.
	Join(ctx context.Context, req *JoinRoomRequest, user *models.User) (*models.Room, error)
	Leave(ctx context.Context, roomID, userID string) error
	GetRoster(ctx context.Context, roomID, userID string) ([]*models.RoomMembership, error)
	RemoveMember(ctx context.Context, roomID, memberID, requesterID string) error

	// IsTeacher reports whether the user owns or co-teaches the room.
	IsTeacher(ctx context.Context, room *models.Room, userID string) bool
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

type CreateRoomRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	TeacherName string  `json:"teacher_name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type UpdateRoomRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	TeacherName *string `json:"teacher_name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsArchived  *bool   `json:"is_archived"`
}

type JoinRoomRequest struct {
	Code string `json:"code" validate:"required,min=4,max=12"`
}

type roomService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRoomService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) RoomService {
	return &roomService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

// joinCodeAlphabet omits easily confused characters (0/O, 1/I/L).
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const joinCodeLength = 6

func generateJoinCode() (string, error) {
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// uniqueJoinCode retries generation until the code collides with neither
// existing student nor teacher codes.
func (s *roomService) uniqueJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return "", err
		}
		if _, err := s.repo.Room().GetByStudentCode(ctx, code); !repositories.IsNotFoundError(err) {
			continue
		}
		if _, err := s.repo.Room().GetByTeacherCode(ctx, code); !repositories.IsNotFoundError(err) {
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to allocate a unique join code")
}

func (s *roomService) Create(ctx context.Context, req *CreateRoomRequest, ownerID string) (*models.Room, error) {
	s.logger.Info("Creating room", "name", req.Name, "owner_id", ownerID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	studentCode, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}
	teacherCode, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:          uuid.NewString(),
		Name:        req.Name,
		TeacherName: req.TeacherName,
		Description: req.Description,
		StudentCode: studentCode,
		TeacherCode: teacherCode,
		OwnerID:     ownerID,
	}

	err = s.repo.Transaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Room().Create(ctx, room); err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		// The owner is always a member, so roster queries need no special case.
		membership := &models.RoomMembership{
			RoomID: room.ID,
			UserID: ownerID,
			Role:   models.RoleTeacher,
		}
		if owner, err := tx.User().GetByID(ctx, ownerID); err == nil {
			membership.UserEmail = owner.Email
			membership.UserName = owner.DisplayName()
		}
		return tx.Room().AddMembership(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Room created", "room_id", room.ID, "student_code", room.StudentCode)
	return room, nil
}

func (s *roomService) GetByID(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, NewPermissionError(userID, roomID, "room", "view", "not a member")
	}

	// Join codes are teacher-only information.
	if !s.IsTeacher(ctx, room, userID) {
		room.TeacherCode = ""
		room.StudentCode = ""
	}
	return room, nil
}

func (s *roomService) Update(ctx context.Context, roomID string, req *UpdateRoomRequest, userID string) (*models.Room, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if !s.IsTeacher(ctx, room, userID) {
		return nil, NewPermissionError(userID, roomID, "room", "update", "not a teacher of this room")
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.TeacherName != nil {
		room.TeacherName = *req.TeacherName
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.IsArchived != nil {
		room.IsArchived = *req.IsArchived
	}

	if err := s.repo.Room().Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return room, nil
}

func (s *roomService) Delete(ctx context.Context, roomID, userID string) error {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if room.OwnerID != userID {
		return NewPermissionError(userID, roomID, "room", "delete", "only the owner can delete a room")
	}

	if err := s.repo.Room().Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	s.logger.Info("Room deleted", "room_id", roomID, "user_id", userID)
	return nil
}

func (s *roomService) ListForUser(ctx context.Context, userID string) ([]*models.Room, error) {
	memberships, err := s.repo.Room().GetMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	rooms := make([]*models.Room, 0, len(memberships))
	for _, m := range memberships {
		room, err := s.repo.Room().GetByID(ctx, m.RoomID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load room %s: %w", m.RoomID, err)
		}
		if !s.IsTeacher(ctx, room, userID) {
			room.TeacherCode = ""
			room.StudentCode = ""
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *roomService) Join(ctx context.Context, req *JoinRoomRequest, user *models.User) (*models.Room, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Codes are matched exactly as entered, no normalization.
	var (
		room *models.Room
		role models.UserRole
	)
	if r, err := s.repo.Room().GetByStudentCode(ctx, req.Code); err == nil {
		room, role = r, models.RoleStudent
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	} else if r, err := s.repo.Room().GetByTeacherCode(ctx, req.Code); err == nil {
		room, role = r, models.RoleTeacher
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	} else {
		return nil, ErrInvalidJoinCode
	}

	if room.IsArchived {
		return nil, ErrRoomArchived
	}

	if _, err := s.repo.Room().GetMembership(ctx, room.ID, user.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	err := s.repo.Transaction(ctx, func(tx repositories.Repository) error {
		membership := &models.RoomMembership{
			RoomID:    room.ID,
			UserID:    user.ID,
			UserEmail: user.Email,
			UserName:  user.DisplayName(),
			Role:      role,
		}
		if err := tx.Room().AddMembership(ctx, membership); err != nil {
			return fmt.Errorf("failed to add membership: %w", err)
		}
		if role == models.RoleTeacher {
			return s.addCollaborator(ctx, tx, room, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User joined room",
		"room_id", room.ID,
		"user_id", user.ID,
		"role", role)

	if role != models.RoleTeacher {
		room.TeacherCode = ""
		room.StudentCode = ""
	}
	return room, nil
}

func (s *roomService) addCollaborator(ctx context.Context, tx repositories.Repository, room *models.Room, userID string) error {
	var collaborators []string
	if len(room.CollaboratorIDs) > 0 {
		if err := json.Unmarshal(room.CollaboratorIDs, &collaborators); err != nil {
			return fmt.Errorf("failed to decode collaborators: %w", err)
		}
	}
	for _, id := range collaborators {
		if id == userID {
			return nil
		}
	}
	collaborators = append(collaborators, userID)
	data, err := json.Marshal(collaborators)
	if err != nil {
		return fmt.Errorf("failed to encode collaborators: %w", err)
	}
	room.CollaboratorIDs = data
	return tx.Room().Update(ctx, room)
}

func (s *roomService) Leave(ctx context.Context, roomID, userID string) error {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}
	if room.OwnerID == userID {
		return ErrCannotRemoveOwner
	}
	if err := s.repo.Room().RemoveMembership(ctx, roomID, userID); err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	s.logger.Info("User left room", "room_id", roomID, "user_id", userID)
	return nil
}

func (s *roomService) GetRoster(ctx context.Context, roomID, userID string) ([]*models.RoomMembership, error) {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member && !s.IsTeacher(ctx, room, userID) {
		return nil, NewPermissionError(userID, roomID, "room", "view roster", "not a member")
	}

	return s.repo.Room().GetMemberships(ctx, roomID)
}

func (s *roomService) RemoveMember(ctx context.Context, roomID, memberID, requesterID string) error {
	room, err := s.repo.Room().GetByID(ctx, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}
	if !s.IsTeacher(ctx, room, requesterID) {
		return NewPermissionError(requesterID, roomID, "room", "remove member", "not a teacher of this room")
	}
	if memberID == room.OwnerID {
		return ErrCannotRemoveOwner
	}
	if _, err := s.repo.Room().GetMembership(ctx, roomID, memberID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotRoomMember
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}
	return s.repo.Room().RemoveMembership(ctx, roomID, memberID)
}

func (s *roomService) IsTeacher(_ context.Context, room *models.Room, userID string) bool {
	if room.OwnerID == userID {
		return true
	}
	if len(room.CollaboratorIDs) == 0 {
		return false
	}
	var collaborators []string
	if err := json.Unmarshal(room.CollaboratorIDs, &collaborators); err != nil {
		return false
	}
	for _, id := range collaborators {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *roomService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	_, err := s.repo.Room().GetMembership(ctx, roomID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// memberIDsByRole collects user ids of members holding the given role.
func memberIDsByRole(memberships []*models.RoomMembership, role models.UserRole) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if m.Role == role {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// withinDue reports whether now is before the due date, treating a nil due
// date as always open.
func withinDue(due *time.Time, now time.Time) bool {
	return due == nil || now.Before(*due)
}
