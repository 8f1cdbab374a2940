package services

import (
	"log/slog"

	"github.com/orvit/classroom-service/internal/cache"
	"github.com/orvit/classroom-service/internal/events"
	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/validator"
)

// ServiceManager provides access to all services
type ServiceManager interface {
	Room() RoomService
	Test() TestService
	Assignment() AssignmentService
	Session() SessionService
	Grading() GradingService
	Results() ResultsService
	Notification() NotificationService
	Announcement() AnnouncementService
}

type serviceManager struct {
	room         RoomService
	test         TestService
	assignment   AssignmentService
	session      SessionService
	grading      GradingService
	results      ResultsService
	notification NotificationService
	announcement AnnouncementService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.Service,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) ServiceManager {
	rooms := NewRoomService(repo, logger, v)
	notifications := NewNotificationService(repo, publisher, logger)

	return &serviceManager{
		room:         rooms,
		test:         NewTestService(repo, rooms, notifications, cacheService, logger, v),
		assignment:   NewAssignmentService(repo, rooms, notifications, cacheService, logger, v),
		session:      NewSessionService(repo, rooms, cacheService, publisher, logger, v),
		grading:      NewGradingService(repo, rooms, notifications, logger, v),
		results:      NewResultsService(repo, rooms, logger),
		notification: notifications,
		announcement: NewAnnouncementService(repo, rooms, notifications, logger, v),
	}
}

func (m *serviceManager) Room() RoomService                 { return m.room }
func (m *serviceManager) Test() TestService                 { return m.test }
func (m *serviceManager) Assignment() AssignmentService     { return m.assignment }
func (m *serviceManager) Session() SessionService           { return m.session }
func (m *serviceManager) Grading() GradingService           { return m.grading }
func (m *serviceManager) Results() ResultsService           { return m.results }
func (m *serviceManager) Notification() NotificationService { return m.notification }
func (m *serviceManager) Announcement() AnnouncementService { return m.announcement }
