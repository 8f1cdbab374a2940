package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orvit/classroom-service/internal/models"
)

func TestRoomService_CreateAndJoin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.addUser(t, "owner-1", models.RoleTeacher)
	student := env.addUser(t, "student-1", models.RoleStudent)

	room, err := env.rooms.Create(ctx, &CreateRoomRequest{
		Name:        "Chemistry",
		TeacherName: "Dr. Lee",
	}, owner.ID)
	require.NoError(t, err)
	assert.Len(t, room.StudentCode, 6)
	assert.Len(t, room.TeacherCode, 6)
	assert.NotEqual(t, room.StudentCode, room.TeacherCode)

	t.Run("owner is enrolled automatically", func(t *testing.T) {
		member, err := env.rooms.IsMember(ctx, room.ID, owner.ID)
		require.NoError(t, err)
		assert.True(t, member)
	})

	t.Run("student joins with student code", func(t *testing.T) {
		joined, err := env.rooms.Join(ctx, &JoinRoomRequest{Code: room.StudentCode}, student)
		require.NoError(t, err)
		assert.Equal(t, room.ID, joined.ID)
		// Students never see join codes.
		assert.Empty(t, joined.StudentCode)
		assert.Empty(t, joined.TeacherCode)
	})

	t.Run("duplicate join is rejected", func(t *testing.T) {
		_, err := env.rooms.Join(ctx, &JoinRoomRequest{Code: room.StudentCode}, student)
		assert.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("invalid code is rejected", func(t *testing.T) {
		_, err := env.rooms.Join(ctx, &JoinRoomRequest{Code: "NOPE99"}, env.addUser(t, "student-2", models.RoleStudent))
		assert.ErrorIs(t, err, ErrInvalidJoinCode)
	})

	t.Run("teacher code grants co-teacher role", func(t *testing.T) {
		co := env.addUser(t, "co-teacher", models.RoleTeacher)
		joined, err := env.rooms.Join(ctx, &JoinRoomRequest{Code: room.TeacherCode}, co)
		require.NoError(t, err)
		assert.NotEmpty(t, joined.TeacherCode)

		updated, err := env.repo.Room().GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.True(t, env.rooms.IsTeacher(ctx, updated, co.ID))
	})

	t.Run("archived room rejects joins", func(t *testing.T) {
		archived := true
		_, err := env.rooms.Update(ctx, room.ID, &UpdateRoomRequest{IsArchived: &archived}, owner.ID)
		require.NoError(t, err)

		_, err = env.rooms.Join(ctx, &JoinRoomRequest{Code: room.StudentCode}, env.addUser(t, "late", models.RoleStudent))
		assert.ErrorIs(t, err, ErrRoomArchived)
	})
}

func TestRoomService_Roster(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	room, _, student := seedRoom(t, env)

	roster, err := env.rooms.GetRoster(ctx, room.ID, student.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := env.rooms.RemoveMember(ctx, room.ID, room.OwnerID, room.OwnerID)
		assert.ErrorIs(t, err, ErrCannotRemoveOwner)
	})

	t.Run("students cannot remove members", func(t *testing.T) {
		err := env.rooms.RemoveMember(ctx, room.ID, student.ID, student.ID)
		var pe *PermissionError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("teacher removes a student", func(t *testing.T) {
		err := env.rooms.RemoveMember(ctx, room.ID, student.ID, room.OwnerID)
		require.NoError(t, err)

		member, err := env.rooms.IsMember(ctx, room.ID, student.ID)
		require.NoError(t, err)
		assert.False(t, member)
	})
}
