package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/elimu-labs/elimu-api/internal/models"
)

// AssessmentRepository provides persistence for assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentDetailSelect = `SELECT a.id, a.name, a.assessment_type, a.date, a.max_score, a.is_cbc, a.subject_id, a.class_id, a.created_at, a.updated_at, s.name AS subject_name, c.name AS class_name FROM assessments a JOIN subjects s ON s.id = a.subject_id JOIN classes c ON c.id = a.class_id`

// List returns assessments with optional filtering and pagination.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.AssessmentDetail, int, error) {
	base := `FROM assessments a JOIN subjects s ON s.id = a.subject_id JOIN classes c ON c.id = a.class_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("a.assessment_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "date"
	}
	allowedSorts := map[string]bool{
		"date":       true,
		"name":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.name, a.assessment_type, a.date, a.max_score, a.is_cbc, a.subject_id, a.class_id, a.created_at, a.updated_at, s.name AS subject_name, c.name AS class_name %s ORDER BY a.%s %s LIMIT %d OFFSET %d`, base, sortBy, order, size, offset)
	var assessments []models.AssessmentDetail
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}

	return assessments, total, nil
}

// FindByID loads an assessment by id.
func (r *AssessmentRepository) FindByID(ctx context.Context, id int64) (*models.Assessment, error) {
	const query = `SELECT id, name, assessment_type, date, max_score, is_cbc, subject_id, class_id, created_at, updated_at FROM assessments WHERE id = $1`
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment by id: %w", err)
	}
	return &assessment, nil
}

// FindDetailByID loads an assessment with display names.
func (r *AssessmentRepository) FindDetailByID(ctx context.Context, id int64) (*models.AssessmentDetail, error) {
	query := assessmentDetailSelect + ` WHERE a.id = $1`
	var assessment models.AssessmentDetail
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment detail: %w", err)
	}
	return &assessment, nil
}

// ListByClass returns assessments for a class, optionally scoped to a subject.
func (r *AssessmentRepository) ListByClass(ctx context.Context, classID, subjectID int64) ([]models.AssessmentDetail, error) {
	query := assessmentDetailSelect + ` WHERE a.class_id = $1`
	args := []interface{}{classID}
	if subjectID > 0 {
		query += ` AND a.subject_id = $2`
		args = append(args, subjectID)
	}
	query += ` ORDER BY a.date DESC`

	var assessments []models.AssessmentDetail
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments by class: %w", err)
	}
	return assessments, nil
}

// Create stores a new assessment and fills the generated id.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now

	const query = `INSERT INTO assessments (name, assessment_type, date, max_score, is_cbc, subject_id, class_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.GetContext(ctx, &assessment.ID, query,
		assessment.Name, assessment.AssessmentType, assessment.Date, assessment.MaxScore,
		assessment.IsCBC, assessment.SubjectID, assessment.ClassID,
		assessment.CreatedAt, assessment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// Update modifies an assessment record.
func (r *AssessmentRepository) Update(ctx context.Context, assessment *models.Assessment) error {
	assessment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessments SET name = :name, assessment_type = :assessment_type, date = :date, max_score = :max_score, is_cbc = :is_cbc, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	return nil
}

// Delete removes an assessment by id.
func (r *AssessmentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return nil
}

// CountPerformances reports how many performance rows reference an assessment.
func (r *AssessmentRepository) CountPerformances(ctx context.Context, id int64) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_performances WHERE assessment_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count assessment performances: %w", err)
	}
	return total, nil
}
