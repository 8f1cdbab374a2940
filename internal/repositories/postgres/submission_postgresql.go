package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/orvit/classroom-service/internal/models"
	"github.com/orvit/classroom-service/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (r *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *SubmissionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionPostgreSQL) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	var submissions []*models.Submission
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Submission{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at":   true,
		"completed_at": true,
		"score":        true,
	})
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *SubmissionPostgreSQL) GetByStudentAndTarget(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) ([]*models.Submission, error) {
	var submissions []*models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND kind = ? AND target_id = ?", studentID, kind, targetID).
		Order("created_at asc").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// GetInProgress returns the student's open session for the target, if any.
// At most one incomplete submission exists per (student, target) pair.
func (r *SubmissionPostgreSQL) GetInProgress(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND kind = ? AND target_id = ? AND is_complete = ?",
			studentID, kind, targetID, false).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *SubmissionPostgreSQL) CountCompleted(ctx context.Context, studentID string, kind models.SubmissionKind, targetID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("student_id = ? AND kind = ? AND target_id = ? AND is_complete = ?",
			studentID, kind, targetID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *SubmissionPostgreSQL) GetByTarget(ctx context.Context, kind models.SubmissionKind, targetID string) ([]*models.Submission, error) {
	var submissions []*models.Submission
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND target_id = ? AND is_complete = ?", kind, targetID, true).
		Order("completed_at desc").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *SubmissionPostgreSQL) GetStats(ctx context.Context, kind models.SubmissionKind, targetID string) (*repositories.SubmissionStats, error) {
	var stats repositories.SubmissionStats
	row := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("COUNT(*) as total_submissions, "+
			"COALESCE(AVG(score), 0) as average_score, "+
			"COALESCE(MAX(score), 0) as highest_score, "+
			"COALESCE(MIN(score), 0) as lowest_score, "+
			"COALESCE(AVG(total_time_seconds), 0) as average_time_spent").
		Where("kind = ? AND target_id = ? AND is_complete = ?", kind, targetID, true).
		Row()

	var avgScore, avgTime float64
	if err := row.Scan(&stats.TotalSubmissions, &avgScore, &stats.HighestScore, &stats.LowestScore, &avgTime); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &stats, nil
		}
		return nil, err
	}
	stats.AverageScore = avgScore
	stats.AverageTimeSpent = int(avgTime)

	return &stats, nil
}

func (r *SubmissionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.TargetID != nil {
		query = query.Where("target_id = ?", *filters.TargetID)
	}
	if filters.RoomID != nil {
		query = query.Where("room_id = ?", *filters.RoomID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.IsComplete != nil {
		query = query.Where("is_complete = ?", *filters.IsComplete)
	}
	return query
}
