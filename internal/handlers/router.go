package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/repositories"
	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

// HandlerManager wires every handler onto the gin router.
type HandlerManager struct {
	roomHandler         *RoomHandler
	testHandler         *TestHandler
	assignmentHandler   *AssignmentHandler
	sessionHandler      *SessionHandler
	gradingHandler      *GradingHandler
	resultsHandler      *ResultsHandler
	notificationHandler *NotificationHandler
	announcementHandler *AnnouncementHandler

	repo   repositories.Repository
	logger utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, repo repositories.Repository, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		roomHandler:         NewRoomHandler(serviceManager.Room(), logger),
		testHandler:         NewTestHandler(serviceManager.Test(), logger),
		assignmentHandler:   NewAssignmentHandler(serviceManager.Assignment(), logger),
		sessionHandler:      NewSessionHandler(serviceManager.Session(), logger),
		gradingHandler:      NewGradingHandler(serviceManager.Grading(), logger),
		resultsHandler:      NewResultsHandler(serviceManager.Results(), logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), logger),
		announcementHandler: NewAnnouncementHandler(serviceManager.Announcement(), logger),
		repo:                repo,
		logger:              logger,
	}
}

// SetupRoutes registers all API routes on the router.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "classroom-service"})
	})

	api := router.Group("/api/v1")
	api.Use(AuthMiddleware(hm.repo, hm.logger))

	rooms := api.Group("/rooms")
	{
		rooms.POST("", RequireTeacher(), hm.roomHandler.CreateRoom)
		rooms.GET("", hm.roomHandler.ListRooms)
		rooms.POST("/join", hm.roomHandler.JoinRoom)
		rooms.GET("/:id", hm.roomHandler.GetRoom)
		rooms.PUT("/:id", RequireTeacher(), hm.roomHandler.UpdateRoom)
		rooms.DELETE("/:id", RequireTeacher(), hm.roomHandler.DeleteRoom)
		rooms.POST("/:id/leave", hm.roomHandler.LeaveRoom)
		rooms.GET("/:id/members", hm.roomHandler.GetRoster)
		rooms.DELETE("/:id/members/:member_id", RequireTeacher(), hm.roomHandler.RemoveMember)

		rooms.GET("/:id/tests", hm.testHandler.ListRoomTests)
		rooms.GET("/:id/assignments", hm.assignmentHandler.ListRoomAssignments)
		rooms.GET("/:id/announcements", hm.announcementHandler.ListRoomAnnouncements)
	}

	tests := api.Group("/tests")
	{
		tests.POST("", RequireTeacher(), hm.testHandler.CreateTest)
		tests.GET("/:id", hm.testHandler.GetTest)
		tests.PUT("/:id", RequireTeacher(), hm.testHandler.UpdateTest)
		tests.DELETE("/:id", RequireTeacher(), hm.testHandler.DeleteTest)
		tests.POST("/:id/publish", RequireTeacher(), hm.testHandler.PublishTest)
		tests.POST("/:id/unpublish", RequireTeacher(), hm.testHandler.UnpublishTest)
		tests.POST("/:id/questions/import", RequireTeacher(), hm.testHandler.ImportQuestions)
	}

	assignments := api.Group("/assignments")
	{
		assignments.POST("", RequireTeacher(), hm.assignmentHandler.CreateAssignment)
		assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
		assignments.PUT("/:id", RequireTeacher(), hm.assignmentHandler.UpdateAssignment)
		assignments.DELETE("/:id", RequireTeacher(), hm.assignmentHandler.DeleteAssignment)
		assignments.POST("/:id/publish", RequireTeacher(), hm.assignmentHandler.PublishAssignment)
		assignments.POST("/:id/unpublish", RequireTeacher(), hm.assignmentHandler.UnpublishAssignment)
	}

	sessions := api.Group("/sessions")
	{
		sessions.POST("", hm.sessionHandler.StartSession)
		sessions.GET("/:id", hm.sessionHandler.GetSession)
		sessions.PUT("/:id/answers", hm.sessionHandler.SaveAnswer)
		sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
		sessions.GET("/:id/time-remaining", hm.sessionHandler.GetTimeRemaining)
	}
	api.GET("/attempts/:kind/:target_id", hm.sessionHandler.GetAttemptSummary)

	submissions := api.Group("/submissions")
	{
		submissions.GET("/:id", hm.resultsHandler.GetSubmission)
		submissions.POST("/:id/grade-essay", RequireTeacher(), hm.gradingHandler.GradeEssay)
	}

	results := api.Group("/results/:kind/:target_id")
	{
		results.GET("", RequireTeacher(), hm.resultsHandler.GetTargetResults)
		results.GET("/export", RequireTeacher(), hm.resultsHandler.ExportTargetResults)
		results.GET("/mine", hm.resultsHandler.GetMySubmissions)
		results.GET("/pending-essays", RequireTeacher(), hm.gradingHandler.ListPendingEssays)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", hm.notificationHandler.ListNotifications)
		notifications.GET("/unread-count", hm.notificationHandler.GetUnreadCount)
		notifications.POST("/:id/read", hm.notificationHandler.MarkRead)
		notifications.POST("/read-all", hm.notificationHandler.MarkAllRead)
	}

	announcements := api.Group("/announcements")
	{
		announcements.POST("", RequireTeacher(), hm.announcementHandler.CreateAnnouncement)
		announcements.DELETE("/:id", hm.announcementHandler.DeleteAnnouncement)
		announcements.POST("/:id/like", hm.announcementHandler.ToggleLike)
		announcements.POST("/:id/comments", hm.announcementHandler.AddComment)
	}
}
