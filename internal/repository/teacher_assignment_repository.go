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

// TeacherAssignmentRepository provides persistence for teacher-subject
// assignments.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository creates a new assignment repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

const assignmentSelect = `SELECT ts.id, ts.teacher_id, ts.subject_id, ts.class_id, ts.created_at, u.full_name AS teacher_name, s.name AS subject_name, s.code AS subject_code, c.name AS class_name FROM teacher_subjects ts JOIN users u ON u.id = ts.teacher_id JOIN subjects s ON s.id = ts.subject_id JOIN classes c ON c.id = ts.class_id`

// List returns assignments with optional filtering and pagination.
func (r *TeacherAssignmentRepository) List(ctx context.Context, filter models.TeacherSubjectFilter) ([]models.TeacherSubjectDetail, int, error) {
	base := `FROM teacher_subjects ts JOIN users u ON u.id = ts.teacher_id JOIN subjects s ON s.id = ts.subject_id JOIN classes c ON c.id = ts.class_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.TeacherID > 0 {
		conditions = append(conditions, fmt.Sprintf("ts.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("ts.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("ts.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT ts.id, ts.teacher_id, ts.subject_id, ts.class_id, ts.created_at, u.full_name AS teacher_name, s.name AS subject_name, s.code AS subject_code, c.name AS class_name %s ORDER BY u.full_name ASC, s.name ASC LIMIT %d OFFSET %d`, base, size, offset)
	var assignments []models.TeacherSubjectDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// FindByID loads an assignment with display names.
func (r *TeacherAssignmentRepository) FindByID(ctx context.Context, id int64) (*models.TeacherSubjectDetail, error) {
	query := assignmentSelect + ` WHERE ts.id = $1`
	var assignment models.TeacherSubjectDetail
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// ListByClass returns the assignments for a class.
func (r *TeacherAssignmentRepository) ListByClass(ctx context.Context, classID int64) ([]models.TeacherSubjectDetail, error) {
	query := assignmentSelect + ` WHERE ts.class_id = $1 ORDER BY s.name ASC`
	var assignments []models.TeacherSubjectDetail
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list assignments by class: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns the assignments held by a teacher.
func (r *TeacherAssignmentRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherSubjectDetail, error) {
	query := assignmentSelect + ` WHERE ts.teacher_id = $1 ORDER BY c.name ASC, s.name ASC`
	var assignments []models.TeacherSubjectDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments by teacher: %w", err)
	}
	return assignments, nil
}

// TeachesInClass reports whether a teacher has any assignment in the class.
func (r *TeacherAssignmentRepository) TeachesInClass(ctx context.Context, teacherID, classID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM teacher_subjects WHERE teacher_id = $1 AND class_id = $2)`
	var teaches bool
	if err := r.db.GetContext(ctx, &teaches, query, teacherID, classID); err != nil {
		return false, fmt.Errorf("check teacher class assignment: %w", err)
	}
	return teaches, nil
}

// Create stores a new assignment and fills the generated id.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, assignment *models.TeacherSubject) error {
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_subjects (teacher_id, subject_id, class_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.GetContext(ctx, &assignment.ID, query,
		assignment.TeacherID, assignment.SubjectID, assignment.ClassID, assignment.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueConflict(err, "teacher already assigned to subject in class")
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// BulkCreate inserts many assignments within a transaction.
func (r *TeacherAssignmentRepository) BulkCreate(ctx context.Context, assignments []models.TeacherSubject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO teacher_subjects (teacher_id, subject_id, class_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	for i := range assignments {
		a := &assignments[i]
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if err = tx.GetContext(ctx, &a.ID, query, a.TeacherID, a.SubjectID, a.ClassID, a.CreatedAt); err != nil {
			if IsUniqueViolation(err) {
				err = uniqueConflict(err, "teacher already assigned to subject in class")
				return err
			}
			err = fmt.Errorf("bulk insert assignment: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create assignments: %w", err)
	}
	return nil
}

// Delete removes an assignment by id.
func (r *TeacherAssignmentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
