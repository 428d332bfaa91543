package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/policy"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type performanceRepository interface {
	List(ctx context.Context, filter models.PerformanceFilter) ([]models.StudentPerformanceDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.StudentPerformance, error)
	FindDetailByID(ctx context.Context, id int64) (*models.StudentPerformanceDetail, error)
	ListByStudent(ctx context.Context, studentID, subjectID int64, assessmentType string, isCBC *bool) ([]models.StudentPerformanceDetail, error)
	ListByAssessment(ctx context.Context, assessmentID int64) ([]models.StudentPerformanceDetail, error)
	Create(ctx context.Context, perf *models.StudentPerformance) error
	Update(ctx context.Context, perf *models.StudentPerformance) error
	Delete(ctx context.Context, id int64) error
}

type performanceAssessmentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Assessment, error)
	ListByClass(ctx context.Context, classID, subjectID int64) ([]models.AssessmentDetail, error)
}

type performanceStudentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

// PerformanceService manages recorded assessment results.
type PerformanceService struct {
	repo        performanceRepository
	assessments performanceAssessmentLookup
	students    performanceStudentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPerformanceService constructs a PerformanceService.
func NewPerformanceService(repo performanceRepository, assessments performanceAssessmentLookup, students performanceStudentLookup, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PerformanceService{repo: repo, assessments: assessments, students: students, validator: validate, logger: logger}
}

// List returns performance records with score statistics over the page.
func (s *PerformanceService) List(ctx context.Context, filter models.PerformanceFilter) (*models.PerformanceListing, int, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list performances")
	}
	fillPercentages(records)
	return &models.PerformanceListing{Records: records, Statistics: scoreStatistics(records)}, total, nil
}

// Get loads one record with display metadata.
func (s *PerformanceService) Get(ctx context.Context, id int64) (*models.StudentPerformanceDetail, error) {
	perf, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "performance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance record")
	}
	perf.Percentage = percentage(perf.Score, perf.MaxScore)
	return perf, nil
}

// Create records a result. The score may not exceed the assessment's
// maximum, and callers can only record as themselves.
func (s *PerformanceService) Create(ctx context.Context, claims *models.JWTClaims, req models.PerformanceCreateRequest) (*models.StudentPerformanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance payload")
	}

	if req.RecordedBy != nil && *req.RecordedBy != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only record performance as yourself")
	}

	assessment, err := s.assessments.FindByID(ctx, req.AssessmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assessment does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.Score != nil && *req.Score > assessment.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %.2f exceeds maximum %.2f", *req.Score, assessment.MaxScore))
	}

	perf := &models.StudentPerformance{
		StudentID:       req.StudentID,
		AssessmentID:    req.AssessmentID,
		Score:           req.Score,
		CompetencyLevel: req.CompetencyLevel,
		Strand:          req.Strand,
		SubStrand:       req.SubStrand,
		Comments:        req.Comments,
		RecordedBy:      claims.UserID,
	}
	if err := s.repo.Create(ctx, perf); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create performance record")
	}

	return s.Get(ctx, perf.ID)
}

// Update modifies a record, subject to recorder ownership.
func (s *PerformanceService) Update(ctx context.Context, claims *models.JWTClaims, id int64, req models.PerformanceUpdateRequest) (*models.StudentPerformanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid performance payload")
	}

	perf, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "performance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance record")
	}

	if err := policy.CheckRecorderOwnership(claims, perf.RecordedBy); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the recorder may modify this record")
	}

	assessment, err := s.assessments.FindByID(ctx, perf.AssessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	if req.Score != nil {
		if *req.Score > assessment.MaxScore {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %.2f exceeds maximum %.2f", *req.Score, assessment.MaxScore))
		}
		perf.Score = req.Score
	}
	if req.CompetencyLevel != nil {
		perf.CompetencyLevel = req.CompetencyLevel
	}
	if req.Strand != nil {
		perf.Strand = req.Strand
	}
	if req.SubStrand != nil {
		perf.SubStrand = req.SubStrand
	}
	if req.Comments != nil {
		perf.Comments = req.Comments
	}

	if err := s.repo.Update(ctx, perf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update performance record")
	}

	return s.Get(ctx, perf.ID)
}

// Delete removes a record, subject to recorder ownership.
func (s *PerformanceService) Delete(ctx context.Context, claims *models.JWTClaims, id int64) error {
	perf, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "performance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance record")
	}

	if err := policy.CheckRecorderOwnership(claims, perf.RecordedBy); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "only the recorder may delete this record")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete performance record")
	}
	return nil
}

// StudentPerformances lists a student's results newest first with optional
// subject, type and curriculum filters.
func (s *PerformanceService) StudentPerformances(ctx context.Context, studentID, subjectID int64, assessmentType string, isCBC *bool) ([]models.StudentPerformanceDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	records, err := s.repo.ListByStudent(ctx, studentID, subjectID, assessmentType, isCBC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student performances")
	}
	fillPercentages(records)
	return records, nil
}

// AssessmentResults returns an assessment's records plus score statistics.
// Statistics are omitted when no record carries a numeric score.
func (s *PerformanceService) AssessmentResults(ctx context.Context, assessmentID int64) (*models.PerformanceListing, error) {
	if _, err := s.assessments.FindByID(ctx, assessmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}

	records, err := s.repo.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment results")
	}
	fillPercentages(records)
	return &models.PerformanceListing{Records: records, Statistics: scoreStatistics(records)}, nil
}

// ClassSummary builds a per-assessment statistics block for each assessment
// held in a class, optionally limited to one subject.
func (s *PerformanceService) ClassSummary(ctx context.Context, classID, subjectID int64) ([]models.ClassAssessmentSummary, error) {
	assessments, err := s.assessments.ListByClass(ctx, classID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assessments")
	}

	summaries := make([]models.ClassAssessmentSummary, 0, len(assessments))
	for _, a := range assessments {
		records, err := s.repo.ListByAssessment(ctx, a.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment results")
		}
		summaries = append(summaries, models.ClassAssessmentSummary{
			Assessment: a,
			Statistics: scoreStatistics(records),
		})
	}
	return summaries, nil
}

func fillPercentages(records []models.StudentPerformanceDetail) {
	for i := range records {
		records[i].Percentage = percentage(records[i].Score, records[i].MaxScore)
	}
}
