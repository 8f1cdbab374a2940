package services

import (
	"errors"
	"fmt"

	apperrors "github.com/orvit/classroom-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Room specific errors
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAccessDenied  = errors.New("access denied to room")
	ErrRoomArchived      = errors.New("room is archived")
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrAlreadyMember     = errors.New("user is already a member of this room")
	ErrNotRoomMember     = errors.New("user is not a member of this room")
	ErrCannotRemoveOwner = errors.New("room owner cannot be removed")

	// Test specific errors
	ErrTestNotFound     = errors.New("test not found")
	ErrTestNotPublished = errors.New("test is not published")
	ErrTestNotEditable  = errors.New("test cannot be edited - has existing submissions")

	// Assignment specific errors
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrAssignmentNotPublished = errors.New("assignment is not published")
	ErrAssignmentPastDue      = errors.New("assignment is past its due date")

	// Session / submission specific errors
	ErrSubmissionNotFound         = errors.New("submission not found")
	ErrSubmissionAccessDenied     = errors.New("access denied to submission")
	ErrSubmissionAlreadyComplete  = errors.New("submission already completed")
	ErrSubmissionNotComplete      = errors.New("submission is not completed")
	ErrTestAlreadyCompleted       = errors.New("test already completed by this student")
	ErrAttemptLimitReached        = errors.New("maximum attempts reached")
	ErrInvalidAccessCode          = errors.New("invalid access code")
	ErrSubmitInProgress           = errors.New("a submit for this session is already in progress")
	ErrSessionExpired             = errors.New("session time limit has expired")
	ErrProgressSavingDisabled     = errors.New("progress saving is disabled for this test")
	ErrSessionQuestionNotFound    = errors.New("question is not part of this session")
	ErrEssayGradingNotApplicable  = errors.New("question is not an essay")
	ErrEssayGradingInvalidPoints  = errors.New("invalid essay points value")
	ErrNotificationNotFound       = errors.New("notification not found")
	ErrAnnouncementNotFound       = errors.New("announcement not found")
	ErrAnnouncementCommentsClosed = errors.New("comments are disabled for this announcement")

	// User/Permission errors
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidRole             = errors.New("invalid user role")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrAnnouncementNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrRoomAccessDenied) ||
		errors.Is(err, ErrSubmissionAccessDenied) ||
		errors.Is(err, ErrInsufficientPermissions) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidAccessCode) ||
		errors.Is(err, ErrInvalidJoinCode) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrTestAlreadyCompleted) ||
		errors.Is(err, ErrAttemptLimitReached) ||
		errors.Is(err, ErrSubmissionAlreadyComplete) ||
		errors.Is(err, ErrSubmitInProgress) ||
		errors.Is(err, ErrTestNotEditable)
}
