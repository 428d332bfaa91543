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

// AttendanceRepository provides persistence for attendance sessions and their
// records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const sessionDetailSelect = `SELECT se.id, se.date, se.period, se.is_school_wide, se.class_id, se.subject_id, se.recorded_by, se.created_at, se.updated_at, c.name AS class_name, su.name AS subject_name FROM attendance_sessions se LEFT JOIN classes c ON c.id = se.class_id LEFT JOIN subjects su ON su.id = se.subject_id`

// List returns sessions with optional filtering and pagination. Records are
// not loaded here.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	base := `FROM attendance_sessions se LEFT JOIN classes c ON c.id = se.class_id LEFT JOIN subjects su ON su.id = se.subject_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("se.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("se.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.RecordedBy > 0 {
		conditions = append(conditions, fmt.Sprintf("se.recorded_by = $%d", len(args)+1))
		args = append(args, filter.RecordedBy)
	}
	if filter.StudentID > 0 {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM attendance_records ar WHERE ar.session_id = se.id AND ar.student_id = $%d)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SchoolWide != nil {
		conditions = append(conditions, fmt.Sprintf("se.is_school_wide = $%d", len(args)+1))
		args = append(args, *filter.SchoolWide)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("se.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("se.date <= $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT se.id, se.date, se.period, se.is_school_wide, se.class_id, se.subject_id, se.recorded_by, se.created_at, se.updated_at, c.name AS class_name, su.name AS subject_name %s ORDER BY se.%s %s LIMIT %d OFFSET %d`, base, sortBy, order, size, offset)
	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads a session without its records.
func (r *AttendanceRepository) FindByID(ctx context.Context, id int64) (*models.AttendanceSession, error) {
	const query = `SELECT id, date, period, is_school_wide, class_id, subject_id, recorded_by, created_at, updated_at FROM attendance_sessions WHERE id = $1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance session: %w", err)
	}
	return &session, nil
}

// FindDetailByID loads a session together with its records.
func (r *AttendanceRepository) FindDetailByID(ctx context.Context, id int64) (*models.AttendanceSessionDetail, error) {
	query := sessionDetailSelect + ` WHERE se.id = $1`
	var session models.AttendanceSessionDetail
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance session detail: %w", err)
	}

	records, err := r.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Records = records
	return &session, nil
}

// ListRecords returns a session's records with student metadata.
func (r *AttendanceRepository) ListRecords(ctx context.Context, sessionID int64) ([]models.AttendanceRecordDetail, error) {
	const query = `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.remarks, ar.created_at, st.full_name AS student_name, st.admission_number FROM attendance_records ar JOIN students st ON st.id = ar.student_id WHERE ar.session_id = $1 ORDER BY st.full_name ASC`
	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// CreateSession stores a session and its records in one transaction.
func (r *AttendanceRepository) CreateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create attendance session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const sessionQuery = `INSERT INTO attendance_sessions (date, period, is_school_wide, class_id, subject_id, recorded_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = tx.GetContext(ctx, &session.ID, sessionQuery,
		session.Date, session.Period, session.IsSchoolWide, session.ClassID,
		session.SubjectID, session.RecordedBy, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("insert attendance session: %w", err)
		return err
	}

	if err = insertRecords(ctx, tx, session.ID, records, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create attendance session: %w", err)
	}
	return nil
}

// UpdateSession updates the session row and replaces its records in one
// transaction.
func (r *AttendanceRepository) UpdateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update attendance session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	session.UpdatedAt = now

	const sessionQuery = `UPDATE attendance_sessions SET date = $1, period = $2, is_school_wide = $3, updated_at = $4 WHERE id = $5`
	if _, err = tx.ExecContext(ctx, sessionQuery, session.Date, session.Period, session.IsSchoolWide, session.UpdatedAt, session.ID); err != nil {
		err = fmt.Errorf("update attendance session: %w", err)
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE session_id = $1`, session.ID); err != nil {
		err = fmt.Errorf("clear attendance records: %w", err)
		return err
	}

	if err = insertRecords(ctx, tx, session.ID, records, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update attendance session: %w", err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sqlx.Tx, sessionID int64, records []models.AttendanceRecord, now time.Time) error {
	const query = `INSERT INTO attendance_records (session_id, student_id, status, remarks, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range records {
		rec := &records[i]
		rec.SessionID = sessionID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if err := tx.GetContext(ctx, &rec.ID, query, rec.SessionID, rec.StudentID, rec.Status, rec.Remarks, rec.CreatedAt); err != nil {
			if IsUniqueViolation(err) {
				return uniqueConflict(err, "student already recorded in session")
			}
			return fmt.Errorf("insert attendance record: %w", err)
		}
	}
	return nil
}

// DeleteSession removes a session; its records go with it via cascade.
func (r *AttendanceRepository) DeleteSession(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attendance_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance session: %w", err)
	}
	return nil
}

type attendanceCounts struct {
	Total   int `db:"total"`
	Present int `db:"present"`
	Absent  int `db:"absent"`
	Late    int `db:"late"`
	Excused int `db:"excused"`
}

// StudentStatusCounts tallies a student's records, optionally within a date
// range. The attendance rate is left for the caller.
func (r *AttendanceRepository) StudentStatusCounts(ctx context.Context, studentID int64, from, to *time.Time) (models.AttendanceStatistics, error) {
	query := `SELECT COUNT(*) AS total,
		COUNT(*) FILTER (WHERE ar.status = 'present') AS present,
		COUNT(*) FILTER (WHERE ar.status = 'absent') AS absent,
		COUNT(*) FILTER (WHERE ar.status = 'late') AS late,
		COUNT(*) FILTER (WHERE ar.status = 'excused') AS excused
		FROM attendance_records ar JOIN attendance_sessions se ON se.id = ar.session_id WHERE ar.student_id = $1`
	args := []interface{}{studentID}

	if from != nil {
		query += fmt.Sprintf(" AND se.date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND se.date <= $%d", len(args)+1)
		args = append(args, *to)
	}

	var counts attendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		return models.AttendanceStatistics{}, fmt.Errorf("count student attendance: %w", err)
	}

	return models.AttendanceStatistics{
		TotalRecords: counts.Total,
		Present:      counts.Present,
		Absent:       counts.Absent,
		Late:         counts.Late,
		Excused:      counts.Excused,
	}, nil
}

// ListStudentRecords returns a student's attendance history, newest first.
func (r *AttendanceRepository) ListStudentRecords(ctx context.Context, studentID int64, from, to *time.Time) ([]models.AttendanceRecordDetail, error) {
	query := `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.remarks, ar.created_at, st.full_name AS student_name, st.admission_number FROM attendance_records ar JOIN attendance_sessions se ON se.id = ar.session_id JOIN students st ON st.id = ar.student_id WHERE ar.student_id = $1`
	args := []interface{}{studentID}

	if from != nil {
		query += fmt.Sprintf(" AND se.date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND se.date <= $%d", len(args)+1)
		args = append(args, *to)
	}
	query += ` ORDER BY se.date DESC, ar.id ASC`

	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student attendance records: %w", err)
	}
	return records, nil
}

// DailyClassCounts aggregates one day's class sessions grouped by class.
func (r *AttendanceRepository) DailyClassCounts(ctx context.Context, date time.Time) ([]models.DailyAttendanceBlock, error) {
	const query = `SELECT se.class_id, c.name AS class_name,
		COUNT(DISTINCT se.id) AS sessions,
		COUNT(ar.id) AS total_records,
		COUNT(ar.id) FILTER (WHERE ar.status = 'present') AS present,
		COUNT(ar.id) FILTER (WHERE ar.status = 'absent') AS absent,
		COUNT(ar.id) FILTER (WHERE ar.status = 'late') AS late,
		COUNT(ar.id) FILTER (WHERE ar.status = 'excused') AS excused
		FROM attendance_sessions se
		JOIN classes c ON c.id = se.class_id
		LEFT JOIN attendance_records ar ON ar.session_id = se.id
		WHERE se.date = $1 AND se.is_school_wide = FALSE
		GROUP BY se.class_id, c.name
		ORDER BY c.name ASC`
	var blocks []models.DailyAttendanceBlock
	if err := r.db.SelectContext(ctx, &blocks, query, date); err != nil {
		return nil, fmt.Errorf("daily class attendance counts: %w", err)
	}
	return blocks, nil
}

// DailySchoolWideCounts aggregates one day's school-wide sessions. Returns
// nil when no such sessions exist for the date.
func (r *AttendanceRepository) DailySchoolWideCounts(ctx context.Context, date time.Time) (*models.DailyAttendanceBlock, error) {
	const query = `SELECT
		COUNT(DISTINCT se.id) AS sessions,
		COUNT(ar.id) AS total_records,
		COUNT(ar.id) FILTER (WHERE ar.status = 'present') AS present,
		COUNT(ar.id) FILTER (WHERE ar.status = 'absent') AS absent,
		COUNT(ar.id) FILTER (WHERE ar.status = 'late') AS late,
		COUNT(ar.id) FILTER (WHERE ar.status = 'excused') AS excused
		FROM attendance_sessions se
		LEFT JOIN attendance_records ar ON ar.session_id = se.id
		WHERE se.date = $1 AND se.is_school_wide = TRUE`
	var block models.DailyAttendanceBlock
	if err := r.db.GetContext(ctx, &block, query, date); err != nil {
		return nil, fmt.Errorf("daily school-wide attendance counts: %w", err)
	}
	if block.Sessions == 0 {
		return nil, nil
	}
	return &block, nil
}
