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

// PerformanceRepository provides persistence for student performance records.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository creates a new performance repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

const performanceDetailSelect = `SELECT p.id, p.student_id, p.assessment_id, p.score, p.competency_level, p.strand, p.sub_strand, p.comments, p.recorded_by, p.created_at, p.updated_at, st.full_name AS student_name, st.admission_number, a.name AS assessment_name, a.max_score, sub.name AS subject_name FROM student_performances p JOIN students st ON st.id = p.student_id JOIN assessments a ON a.id = p.assessment_id JOIN subjects sub ON sub.id = a.subject_id`

// List returns performance records with optional filtering and pagination.
func (r *PerformanceRepository) List(ctx context.Context, filter models.PerformanceFilter) ([]models.StudentPerformanceDetail, int, error) {
	base := `FROM student_performances p JOIN students st ON st.id = p.student_id JOIN assessments a ON a.id = p.assessment_id JOIN subjects sub ON sub.id = a.subject_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AssessmentID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.assessment_id = $%d", len(args)+1))
		args = append(args, filter.AssessmentID)
	}
	if filter.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.RecordedBy > 0 {
		conditions = append(conditions, fmt.Sprintf("p.recorded_by = $%d", len(args)+1))
		args = append(args, filter.RecordedBy)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.student_id, p.assessment_id, p.score, p.competency_level, p.strand, p.sub_strand, p.comments, p.recorded_by, p.created_at, p.updated_at, st.full_name AS student_name, st.admission_number, a.name AS assessment_name, a.max_score, sub.name AS subject_name %s ORDER BY a.date DESC, st.full_name ASC LIMIT %d OFFSET %d`, base, size, offset)
	var records []models.StudentPerformanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list performances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count performances: %w", err)
	}

	return records, total, nil
}

// FindByID loads a performance record by id.
func (r *PerformanceRepository) FindByID(ctx context.Context, id int64) (*models.StudentPerformance, error) {
	const query = `SELECT id, student_id, assessment_id, score, competency_level, strand, sub_strand, comments, recorded_by, created_at, updated_at FROM student_performances WHERE id = $1`
	var perf models.StudentPerformance
	if err := r.db.GetContext(ctx, &perf, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find performance by id: %w", err)
	}
	return &perf, nil
}

// FindDetailByID loads a performance record with display metadata.
func (r *PerformanceRepository) FindDetailByID(ctx context.Context, id int64) (*models.StudentPerformanceDetail, error) {
	query := performanceDetailSelect + ` WHERE p.id = $1`
	var perf models.StudentPerformanceDetail
	if err := r.db.GetContext(ctx, &perf, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find performance detail: %w", err)
	}
	return &perf, nil
}

// ListByStudent returns a student's performance records, newest first.
func (r *PerformanceRepository) ListByStudent(ctx context.Context, studentID, subjectID int64, assessmentType string, isCBC *bool) ([]models.StudentPerformanceDetail, error) {
	query := performanceDetailSelect + ` WHERE p.student_id = $1`
	args := []interface{}{studentID}

	if subjectID > 0 {
		query += fmt.Sprintf(" AND a.subject_id = $%d", len(args)+1)
		args = append(args, subjectID)
	}
	if assessmentType != "" {
		query += fmt.Sprintf(" AND a.assessment_type = $%d", len(args)+1)
		args = append(args, assessmentType)
	}
	if isCBC != nil {
		query += fmt.Sprintf(" AND a.is_cbc = $%d", len(args)+1)
		args = append(args, *isCBC)
	}
	query += ` ORDER BY a.date DESC`

	var records []models.StudentPerformanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list performances by student: %w", err)
	}
	return records, nil
}

// ListByAssessment returns every performance record for an assessment.
func (r *PerformanceRepository) ListByAssessment(ctx context.Context, assessmentID int64) ([]models.StudentPerformanceDetail, error) {
	query := performanceDetailSelect + ` WHERE p.assessment_id = $1 ORDER BY st.full_name ASC`
	var records []models.StudentPerformanceDetail
	if err := r.db.SelectContext(ctx, &records, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list performances by assessment: %w", err)
	}
	return records, nil
}

// Create stores a new performance record. The (student, assessment) unique
// constraint maps duplicates to a conflict.
func (r *PerformanceRepository) Create(ctx context.Context, perf *models.StudentPerformance) error {
	now := time.Now().UTC()
	if perf.CreatedAt.IsZero() {
		perf.CreatedAt = now
	}
	perf.UpdatedAt = now

	const query = `INSERT INTO student_performances (student_id, assessment_id, score, competency_level, strand, sub_strand, comments, recorded_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.GetContext(ctx, &perf.ID, query,
		perf.StudentID, perf.AssessmentID, perf.Score, perf.CompetencyLevel,
		perf.Strand, perf.SubStrand, perf.Comments, perf.RecordedBy,
		perf.CreatedAt, perf.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueConflict(err, "performance already recorded for student and assessment")
		}
		return fmt.Errorf("create performance: %w", err)
	}
	return nil
}

// Update modifies a performance record.
func (r *PerformanceRepository) Update(ctx context.Context, perf *models.StudentPerformance) error {
	perf.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_performances SET score = :score, competency_level = :competency_level, strand = :strand, sub_strand = :sub_strand, comments = :comments, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, perf); err != nil {
		return fmt.Errorf("update performance: %w", err)
	}
	return nil
}

// Delete removes a performance record by id.
func (r *PerformanceRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_performances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete performance: %w", err)
	}
	return nil
}
