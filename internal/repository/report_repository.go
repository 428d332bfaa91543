package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/elimu-labs/elimu-api/internal/models"
)

// ReportRepository runs the aggregation queries behind the reporting
// endpoints. Row-level scoping for teachers happens here, in SQL, so
// restricted callers simply see fewer rows.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// attendanceScope limits rows to classes the teacher leads or teaches in.
func attendanceScope(scope models.ReportScope, args *[]interface{}) string {
	if !scope.Restricted {
		return ""
	}
	*args = append(*args, scope.UserID)
	n := len(*args)
	return fmt.Sprintf(" AND (c.class_teacher_id = $%d OR c.id IN (SELECT class_id FROM teacher_subjects WHERE teacher_id = $%d))", n, n)
}

// performanceScope limits rows to classes the teacher leads, or to
// subject/class pairs within the teacher's assignments.
func performanceScope(scope models.ReportScope, args *[]interface{}) string {
	if !scope.Restricted {
		return ""
	}
	*args = append(*args, scope.UserID)
	n := len(*args)
	return fmt.Sprintf(" AND (c.class_teacher_id = $%d OR (a.subject_id IN (SELECT subject_id FROM teacher_subjects WHERE teacher_id = $%d) AND a.class_id IN (SELECT class_id FROM teacher_subjects WHERE teacher_id = $%d)))", n, n, n)
}

// ClassAttendanceSummary aggregates attendance per class over a date range.
func (r *ReportRepository) ClassAttendanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassAttendanceSummaryRow, error) {
	base := `FROM attendance_sessions se
		JOIN classes c ON c.id = se.class_id
		LEFT JOIN attendance_records ar ON ar.session_id = se.id
		WHERE se.is_school_wide = FALSE`
	var conditions []string
	var args []interface{}

	if q.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("se.class_id = $%d", len(args)+1))
		args = append(args, q.ClassID)
	}
	if q.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("se.date >= $%d", len(args)+1))
		args = append(args, *q.DateFrom)
	}
	if q.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("se.date <= $%d", len(args)+1))
		args = append(args, *q.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += attendanceScope(scope, &args)

	query := `SELECT c.id AS class_id, c.name AS class_name, c.stream,
		COUNT(DISTINCT se.id) AS total_sessions,
		COUNT(ar.id) AS total_records,
		COUNT(ar.id) FILTER (WHERE ar.status = 'present') AS present_count
		` + base + `
		GROUP BY c.id, c.name, c.stream
		ORDER BY c.name ASC`

	var rows []models.ClassAttendanceSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("class attendance summary: %w", err)
	}
	return rows, nil
}

// StudentAttendanceDetails lists individual attendance records for reporting.
func (r *ReportRepository) StudentAttendanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentAttendanceDetailRow, error) {
	base := `FROM attendance_records ar
		JOIN attendance_sessions se ON se.id = ar.session_id
		JOIN students st ON st.id = ar.student_id
		JOIN classes c ON c.id = st.class_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if q.StudentID > 0 {
		conditions = append(conditions, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, q.StudentID)
	}
	if q.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("st.class_id = $%d", len(args)+1))
		args = append(args, q.ClassID)
	}
	if q.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("se.date >= $%d", len(args)+1))
		args = append(args, *q.DateFrom)
	}
	if q.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("se.date <= $%d", len(args)+1))
		args = append(args, *q.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += attendanceScope(scope, &args)

	query := `SELECT st.id AS student_id, st.full_name AS student_name, st.admission_number,
		c.name AS class_name, c.stream, se.date, ar.status, ar.remarks
		` + base + `
		ORDER BY se.date DESC, st.full_name ASC`

	var rows []models.StudentAttendanceDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance details: %w", err)
	}
	return rows, nil
}

// ClassPerformanceSummary aggregates scores per class, subject and assessment.
func (r *ReportRepository) ClassPerformanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassPerformanceSummaryRow, error) {
	base := `FROM student_performances p
		JOIN assessments a ON a.id = p.assessment_id
		JOIN subjects sub ON sub.id = a.subject_id
		JOIN classes c ON c.id = a.class_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if q.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, q.ClassID)
	}
	if q.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, q.SubjectID)
	}
	if q.AssessmentType != "" {
		conditions = append(conditions, fmt.Sprintf("a.assessment_type = $%d", len(args)+1))
		args = append(args, q.AssessmentType)
	}
	if q.IsCBC != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_cbc = $%d", len(args)+1))
		args = append(args, *q.IsCBC)
	}
	if q.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *q.DateFrom)
	}
	if q.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *q.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += performanceScope(scope, &args)

	query := `SELECT c.id AS class_id, c.name AS class_name, c.stream,
		sub.id AS subject_id, sub.name AS subject_name,
		a.id AS assessment_id, a.name AS assessment_name, a.assessment_type, a.date, a.max_score,
		COUNT(p.id) AS record_count,
		AVG(p.score) AS average_score,
		MAX(p.score) AS highest_score,
		MIN(p.score) AS lowest_score
		` + base + `
		GROUP BY c.id, c.name, c.stream, sub.id, sub.name, a.id, a.name, a.assessment_type, a.date, a.max_score
		ORDER BY c.name ASC, sub.name ASC, a.date DESC`

	var rows []models.ClassPerformanceSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("class performance summary: %w", err)
	}
	return rows, nil
}

// StudentPerformanceDetails lists individual performance records for
// reporting.
func (r *ReportRepository) StudentPerformanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentPerformanceDetailRow, error) {
	base := `FROM student_performances p
		JOIN assessments a ON a.id = p.assessment_id
		JOIN subjects sub ON sub.id = a.subject_id
		JOIN students st ON st.id = p.student_id
		JOIN classes c ON c.id = a.class_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if q.StudentID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, q.StudentID)
	}
	if q.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, q.ClassID)
	}
	if q.SubjectID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, q.SubjectID)
	}
	if q.AssessmentType != "" {
		conditions = append(conditions, fmt.Sprintf("a.assessment_type = $%d", len(args)+1))
		args = append(args, q.AssessmentType)
	}
	if q.IsCBC != nil {
		conditions = append(conditions, fmt.Sprintf("a.is_cbc = $%d", len(args)+1))
		args = append(args, *q.IsCBC)
	}
	if q.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *q.DateFrom)
	}
	if q.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *q.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += performanceScope(scope, &args)

	query := `SELECT st.id AS student_id, st.full_name AS student_name, st.admission_number,
		c.id AS class_id, c.name AS class_name, c.stream,
		sub.id AS subject_id, sub.name AS subject_name,
		a.id AS assessment_id, a.name AS assessment_name, a.assessment_type, a.date, a.max_score,
		p.score, p.competency_level, p.strand, p.sub_strand, p.comments
		` + base + `
		ORDER BY a.date DESC, st.full_name ASC`

	var rows []models.StudentPerformanceDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student performance details: %w", err)
	}
	return rows, nil
}

type progressDayCounts struct {
	TotalDays   int `db:"total_days"`
	PresentDays int `db:"present_days"`
}

// StudentAttendanceDayCounts tallies distinct attendance days for the
// progress report.
func (r *ReportRepository) StudentAttendanceDayCounts(ctx context.Context, studentID int64) (total, present int, err error) {
	const query = `SELECT
		COUNT(DISTINCT se.date) AS total_days,
		COUNT(DISTINCT se.date) FILTER (WHERE ar.status = 'present') AS present_days
		FROM attendance_records ar
		JOIN attendance_sessions se ON se.id = ar.session_id
		WHERE ar.student_id = $1`
	var counts progressDayCounts
	if err := r.db.GetContext(ctx, &counts, query, studentID); err != nil {
		return 0, 0, fmt.Errorf("student attendance day counts: %w", err)
	}
	return counts.TotalDays, counts.PresentDays, nil
}

// StudentSubjectAverages aggregates a student's scores per subject.
func (r *ReportRepository) StudentSubjectAverages(ctx context.Context, studentID int64) ([]models.ProgressSubjectPerformance, error) {
	const query = `SELECT sub.id AS subject_id, sub.name AS subject_name,
		COUNT(p.id) AS assessment_count,
		AVG(p.score) AS average_score,
		AVG(a.max_score) AS max_score
		FROM student_performances p
		JOIN assessments a ON a.id = p.assessment_id
		JOIN subjects sub ON sub.id = a.subject_id
		WHERE p.student_id = $1
		GROUP BY sub.id, sub.name
		ORDER BY sub.name ASC`
	var rows []models.ProgressSubjectPerformance
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student subject averages: %w", err)
	}
	return rows, nil
}

// StudentRecentAssessments returns the student's latest graded assessments.
func (r *ReportRepository) StudentRecentAssessments(ctx context.Context, studentID int64, limit int) ([]models.ProgressRecentAssessment, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT a.id AS assessment_id, a.name, a.assessment_type, a.date,
		sub.name AS subject_name, p.score, a.max_score, p.competency_level, p.comments
		FROM student_performances p
		JOIN assessments a ON a.id = p.assessment_id
		JOIN subjects sub ON sub.id = a.subject_id
		WHERE p.student_id = $1
		ORDER BY a.date DESC
		LIMIT %d`, limit)
	var rows []models.ProgressRecentAssessment
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student recent assessments: %w", err)
	}
	return rows, nil
}
