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

// StudentRepository provides persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, admission_number, full_name, date_of_birth, gender, parent_name, parent_phone, address, class_id, created_at, updated_at`

// List returns students with optional filtering and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Gender != "" {
		conditions = append(conditions, fmt.Sprintf("s.gender = $%d", len(args)+1))
		args = append(args, filter.Gender)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.admission_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "full_name"
	}
	allowedSorts := map[string]bool{
		"full_name":        true,
		"admission_number": true,
		"created_at":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT s.id, s.admission_number, s.full_name, s.date_of_birth, s.gender, s.parent_name, s.parent_phone, s.address, s.class_id, s.created_at, s.updated_at, c.name AS class_name %s ORDER BY s.%s %s LIMIT %d OFFSET %d`, base, sortBy, order, size, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID loads a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindDetailByID loads a student with class metadata.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.admission_number, s.full_name, s.date_of_birth, s.gender, s.parent_name, s.parent_phone, s.address, s.class_id, s.created_at, s.updated_at, c.name AS class_name FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student detail: %w", err)
	}
	return &student, nil
}

// ListByClass returns all students in a class ordered by name.
func (r *StudentRepository) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE class_id = $1 ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}

// Create stores a new student and fills the generated id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (admission_number, full_name, date_of_birth, gender, parent_name, parent_phone, address, class_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.GetContext(ctx, &student.ID, query,
		student.AdmissionNumber, student.FullName, student.DateOfBirth, student.Gender,
		student.ParentName, student.ParentPhone, student.Address, student.ClassID,
		student.CreatedAt, student.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueConflict(err, "admission number already exists")
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkCreate inserts many students within a transaction.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create students: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO students (admission_number, full_name, date_of_birth, gender, parent_name, parent_phone, address, class_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	for i := range students {
		s := &students[i]
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		if err = tx.GetContext(ctx, &s.ID, query,
			s.AdmissionNumber, s.FullName, s.DateOfBirth, s.Gender,
			s.ParentName, s.ParentPhone, s.Address, s.ClassID,
			s.CreatedAt, s.UpdatedAt); err != nil {
			if IsUniqueViolation(err) {
				err = uniqueConflict(err, fmt.Sprintf("admission number %s already exists", s.AdmissionNumber))
				return err
			}
			err = fmt.Errorf("bulk insert student: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create students: %w", err)
	}
	return nil
}

// Update modifies a student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, date_of_birth = :date_of_birth, gender = :gender, parent_name = :parent_name, parent_phone = :parent_phone, address = :address, class_id = :class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student by id.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// CountRecords reports attendance and performance rows referencing a student.
func (r *StudentRepository) CountRecords(ctx context.Context, id int64) (int, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM attendance_records WHERE student_id = $1) +
		(SELECT COUNT(*) FROM student_performances WHERE student_id = $1)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, id); err != nil {
		return 0, fmt.Errorf("count student records: %w", err)
	}
	return total, nil
}
