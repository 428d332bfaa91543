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

// TimetableRepository provides persistence for timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableDetailSelect = `SELECT t.id, t.day, t.period, t.room, t.subject_id, t.class_id, t.teacher_id, t.created_at, t.updated_at, s.name AS subject_name, c.name AS class_name, u.full_name AS teacher_name FROM timetable_entries t JOIN subjects s ON s.id = t.subject_id JOIN classes c ON c.id = t.class_id JOIN users u ON u.id = t.teacher_id`

// List returns timetable entries with optional filtering and pagination.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, int, error) {
	base := `FROM timetable_entries t JOIN subjects s ON s.id = t.subject_id JOIN classes c ON c.id = t.class_id JOIN users u ON u.id = t.teacher_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("t.day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Period > 0 {
		conditions = append(conditions, fmt.Sprintf("t.period = $%d", len(args)+1))
		args = append(args, filter.Period)
	}
	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("t.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID > 0 {
		conditions = append(conditions, fmt.Sprintf("t.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("t.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("t.room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "day"
	}
	allowedSorts := map[string]bool{
		"day":        true,
		"period":     true,
		"room":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day"
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

	query := fmt.Sprintf(`SELECT t.id, t.day, t.period, t.room, t.subject_id, t.class_id, t.teacher_id, t.created_at, t.updated_at, s.name AS subject_name, c.name AS class_name, u.full_name AS teacher_name %s ORDER BY t.%s %s, t.period ASC LIMIT %d OFFSET %d`, base, sortBy, order, size, offset)
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable entries: %w", err)
	}

	return entries, total, nil
}

// FindByID loads an entry by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id int64) (*models.TimetableEntry, error) {
	const query = `SELECT id, day, period, room, subject_id, class_id, teacher_id, created_at, updated_at FROM timetable_entries WHERE id = $1`
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable entry: %w", err)
	}
	return &entry, nil
}

// FindDetailByID loads an entry with display names.
func (r *TimetableRepository) FindDetailByID(ctx context.Context, id int64) (*models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + ` WHERE t.id = $1`
	var entry models.TimetableEntryDetail
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable entry detail: %w", err)
	}
	return &entry, nil
}

// FindBySlot returns every entry at a (day, period) slot. Used by the
// conflict checker to inspect all three collision dimensions in one pass.
func (r *TimetableRepository) FindBySlot(ctx context.Context, day string, period int) ([]models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + ` WHERE t.day = $1 AND t.period = $2 ORDER BY t.id ASC`
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, day, period); err != nil {
		return nil, fmt.Errorf("find timetable slot: %w", err)
	}
	return entries, nil
}

// ListByClass returns all entries for a class ordered by day and period.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID int64) ([]models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + ` WHERE t.class_id = $1 ORDER BY t.day ASC, t.period ASC`
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list timetable by class: %w", err)
	}
	return entries, nil
}

// ListByTeacher returns all entries taught by a teacher.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + ` WHERE t.teacher_id = $1 ORDER BY t.day ASC, t.period ASC`
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable by teacher: %w", err)
	}
	return entries, nil
}

// Create stores a new entry. The slot unique constraints are the
// authoritative guard; violations surface as conflicts.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO timetable_entries (day, period, room, subject_id, class_id, teacher_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.GetContext(ctx, &entry.ID, query,
		entry.Day, entry.Period, entry.Room, entry.SubjectID, entry.ClassID, entry.TeacherID,
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueConflict(err, "timetable slot already taken")
		}
		return fmt.Errorf("create timetable entry: %w", err)
	}
	return nil
}

// Update modifies an entry.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_entries SET day = :day, period = :period, room = :room, subject_id = :subject_id, class_id = :class_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		if IsUniqueViolation(err) {
			return uniqueConflict(err, "timetable slot already taken")
		}
		return fmt.Errorf("update timetable entry: %w", err)
	}
	return nil
}

// Delete removes an entry by id.
func (r *TimetableRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	return nil
}
