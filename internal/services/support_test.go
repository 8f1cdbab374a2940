package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/orvit/classroom-service/internal/cache"
	"github.com/orvit/classroom-service/internal/events"
	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// fakeRepository is an in-memory repositories.Repository used across the
// service tests.
type fakeRepository struct {
	mu sync.Mutex

	users         map[string]*models.User
	rooms         map[string]*models.Room
	memberships   []*models.RoomMembership
	tests         map[string]*models.Test
	assignments   map[string]*models.Assignment
	submissions   map[string]*models.Submission
	announcements map[string]*models.Announcement
	notifications map[string]*models.Notification

	nextMembershipID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:         make(map[string]*models.User),
		rooms:         make(map[string]*models.Room),
		tests:         make(map[string]*models.Test),
		assignments:   make(map[string]*models.Assignment),
		submissions:   make(map[string]*models.Submission),
		announcements: make(map[string]*models.Announcement),
		notifications: make(map[string]*models.Notification),
	}
}

func (f *fakeRepository) User() repositories.UserRepository                 { return (*fakeUserRepo)(f) }
func (f *fakeRepository) Room() repositories.RoomRepository                 { return (*fakeRoomRepo)(f) }
func (f *fakeRepository) Test() repositories.TestRepository                 { return (*fakeTestRepo)(f) }
func (f *fakeRepository) Assignment() repositories.AssignmentRepository     { return (*fakeAssignmentRepo)(f) }
func (f *fakeRepository) Submission() repositories.SubmissionRepository     { return (*fakeSubmissionRepo)(f) }
func (f *fakeRepository) Announcement() repositories.AnnouncementRepository { return (*fakeAnnouncementRepo)(f) }
func (f *fakeRepository) Notification() repositories.NotificationRepository { return (*fakeNotificationRepo)(f) }

func (f *fakeRepository) Transaction(_ context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

// ===== users =====

type fakeUserRepo fakeRepository

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

// ===== rooms =====

type fakeRoomRepo fakeRepository

func (f *fakeRoomRepo) Create(_ context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *room
	f.rooms[room.ID] = &copied
	return nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) GetByStudentCode(_ context.Context, code string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.StudentCode == code {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) GetByTeacherCode(_ context.Context, code string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.TeacherCode == code {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) Update(_ context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *room
	f.rooms[room.ID] = &copied
	return nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomRepo) GetByOwner(_ context.Context, ownerID string) ([]*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Room
	for _, r := range f.rooms {
		if r.OwnerID == ownerID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) AddMembership(_ context.Context, membership *models.RoomMembership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMembershipID++
	copied := *membership
	copied.ID = f.nextMembershipID
	f.memberships = append(f.memberships, &copied)
	return nil
}

func (f *fakeRoomRepo) RemoveMembership(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.memberships[:0]
	for _, m := range f.memberships {
		if m.RoomID == roomID && m.UserID == userID {
			continue
		}
		kept = append(kept, m)
	}
	f.memberships = kept
	return nil
}

func (f *fakeRoomRepo) GetMembership(_ context.Context, roomID, userID string) (*models.RoomMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.memberships {
		if m.RoomID == roomID && m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) GetMemberships(_ context.Context, roomID string) ([]*models.RoomMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RoomMembership
	for _, m := range f.memberships {
		if m.RoomID == roomID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) GetMembershipsByUser(_ context.Context, userID string) ([]*models.RoomMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RoomMembership
	for _, m := range f.memberships {
		if m.UserID == userID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== tests =====

type fakeTestRepo fakeRepository

func (f *fakeTestRepo) Create(_ context.Context, test *models.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *test
	f.tests[test.ID] = &copied
	return nil
}

func (f *fakeTestRepo) GetByID(_ context.Context, id string) (*models.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tests[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTestRepo) Update(_ context.Context, test *models.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tests[test.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *test
	f.tests[test.ID] = &copied
	return nil
}

func (f *fakeTestRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tests, id)
	return nil
}

func (f *fakeTestRepo) List(_ context.Context, _ repositories.TestFilters) ([]*models.Test, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Test
	for _, t := range f.tests {
		copied := *t
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTestRepo) GetByRoom(_ context.Context, roomID string) ([]*models.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Test
	for _, t := range f.tests {
		if t.RoomID == roomID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== assignments =====

type fakeAssignmentRepo fakeRepository

func (f *fakeAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *assignment
	f.assignments[assignment.ID] = &copied
	return nil
}

func (f *fakeAssignmentRepo) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assignments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *assignment
	f.assignments[assignment.ID] = &copied
	return nil
}

func (f *fakeAssignmentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments, id)
	return nil
}

func (f *fakeAssignmentRepo) List(_ context.Context, _ repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Assignment
	for _, a := range f.assignments {
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssignmentRepo) GetByRoom(_ context.Context, roomID string) ([]*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Assignment
	for _, a := range f.assignments {
		if a.RoomID == roomID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== submissions =====

type fakeSubmissionRepo fakeRepository

func (f *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *submission
	f.submissions[submission.ID] = &copied
	return nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.submissions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *submission
	f.submissions[submission.ID] = &copied
	return nil
}

func (f *fakeSubmissionRepo) List(_ context.Context, _ repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Submission
	for _, s := range f.submissions {
		copied := *s
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSubmissionRepo) GetByStudentAndTarget(_ context.Context, studentID string, kind models.SubmissionKind, targetID string) ([]*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Submission
	for _, s := range f.submissions {
		if s.StudentID == studentID && s.Kind == kind && s.TargetID == targetID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetInProgress(_ context.Context, studentID string, kind models.SubmissionKind, targetID string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.StudentID == studentID && s.Kind == kind && s.TargetID == targetID && !s.IsComplete {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) CountCompleted(_ context.Context, studentID string, kind models.SubmissionKind, targetID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.submissions {
		if s.StudentID == studentID && s.Kind == kind && s.TargetID == targetID && s.IsComplete {
			count++
		}
	}
	return count, nil
}

func (f *fakeSubmissionRepo) GetByTarget(_ context.Context, kind models.SubmissionKind, targetID string) ([]*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Submission
	for _, s := range f.submissions {
		if s.Kind == kind && s.TargetID == targetID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetStats(_ context.Context, kind models.SubmissionKind, targetID string) (*repositories.SubmissionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repositories.SubmissionStats{}
	totalScore := 0
	totalTime := 0
	for _, s := range f.submissions {
		if s.Kind != kind || s.TargetID != targetID || !s.IsComplete {
			continue
		}
		if stats.TotalSubmissions == 0 || s.Score > stats.HighestScore {
			stats.HighestScore = s.Score
		}
		if stats.TotalSubmissions == 0 || s.Score < stats.LowestScore {
			stats.LowestScore = s.Score
		}
		stats.TotalSubmissions++
		totalScore += s.Score
		totalTime += s.TotalTimeSeconds
	}
	if stats.TotalSubmissions > 0 {
		stats.AverageScore = float64(totalScore) / float64(stats.TotalSubmissions)
		stats.AverageTimeSpent = totalTime / stats.TotalSubmissions
	}
	return stats, nil
}

// ===== announcements =====

type fakeAnnouncementRepo fakeRepository

func (f *fakeAnnouncementRepo) Create(_ context.Context, announcement *models.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *announcement
	f.announcements[announcement.ID] = &copied
	return nil
}

func (f *fakeAnnouncementRepo) GetByID(_ context.Context, id string) (*models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.announcements[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAnnouncementRepo) Update(_ context.Context, announcement *models.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.announcements[announcement.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *announcement
	f.announcements[announcement.ID] = &copied
	return nil
}

func (f *fakeAnnouncementRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.announcements, id)
	return nil
}

func (f *fakeAnnouncementRepo) GetByRoom(_ context.Context, roomID string) ([]*models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Announcement
	for _, a := range f.announcements {
		if a.RoomID == roomID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== notifications =====

type fakeNotificationRepo fakeRepository

func (f *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *notification
	f.notifications[notification.ID] = &copied
	return nil
}

func (f *fakeNotificationRepo) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	for _, n := range notifications {
		if err := f.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(_ context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.notifications[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) List(_ context.Context, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.notifications {
		if filters.UserID != nil && n.UserID != *filters.UserID {
			continue
		}
		if filters.IsRead != nil && n.IsRead != *filters.IsRead {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id string, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	n.ReadAt = &readAt
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &readAt
		}
	}
	return nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// ===== shared fixture =====

type testEnv struct {
	repo      *fakeRepository
	cache     cache.Service
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	rooms         RoomService
	tests         TestService
	assignments   AssignmentService
	sessions      SessionService
	grading       GradingService
	results       ResultsService
	notifications NotificationService
	announcements AnnouncementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newFakeRepository()
	cacheService := cache.NewMemoryCache()
	publisher := events.NewMockEventPublisher(logger)
	v := validator.New()

	rooms := NewRoomService(repo, logger, v)
	notifications := NewNotificationService(repo, publisher, logger)

	return &testEnv{
		repo:          repo,
		cache:         cacheService,
		publisher:     publisher,
		logger:        logger,
		validator:     v,
		rooms:         rooms,
		tests:         NewTestService(repo, rooms, notifications, cacheService, logger, v),
		assignments:   NewAssignmentService(repo, rooms, notifications, cacheService, logger, v),
		sessions:      NewSessionService(repo, rooms, cacheService, publisher, logger, v),
		grading:       NewGradingService(repo, rooms, notifications, logger, v),
		results:       NewResultsService(repo, rooms, logger),
		notifications: notifications,
		announcements: NewAnnouncementService(repo, rooms, notifications, logger, v),
	}
}

// setClock overrides the session service clock for timer tests.
func (e *testEnv) setClock(now func() time.Time) {
	e.sessions.(*sessionService).now = now
}

func (e *testEnv) addUser(t *testing.T, id string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{ID: id, FullName: id, Email: id + "@example.com", Role: role}
	if err := e.repo.User().Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	return user
}

func (e *testEnv) addMember(t *testing.T, roomID string, user *models.User, role models.UserRole) {
	t.Helper()
	err := e.repo.Room().AddMembership(context.Background(), &models.RoomMembership{
		RoomID:   roomID,
		UserID:   user.ID,
		UserName: user.FullName,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("failed to add membership: %v", err)
	}
}
