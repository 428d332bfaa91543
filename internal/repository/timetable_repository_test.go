package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func timetableDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "day", "period", "room", "subject_id", "class_id", "teacher_id",
		"created_at", "updated_at", "subject_name", "class_name", "teacher_name",
	})
}

func TestTimetableRepositoryList(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now()
	rows := timetableDetailRows().
		AddRow(1, "Monday", 1, nil, 2, 3, 4, now, now, "Mathematics", "Grade 4 East", "Jane Mwangi").
		AddRow(2, "Monday", 2, nil, 5, 3, 4, now, now, "English", "Grade 4 East", "Jane Mwangi")
	mock.ExpectQuery("SELECT (.+) FROM timetable_entries t JOIN subjects s").
		WithArgs("Monday").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_entries t")).
		WithArgs("Monday").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	list, total, err := repo.List(context.Background(), models.TimetableFilter{Day: "Monday"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindBySlot(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now()
	room := "Lab 1"
	rows := timetableDetailRows().
		AddRow(7, "Tuesday", 3, &room, 2, 3, 4, now, now, "Science", "Grade 5 West", "Peter Otieno")
	mock.ExpectQuery("SELECT (.+) FROM timetable_entries t JOIN subjects s (.+) WHERE t.day = \\$1 AND t.period = \\$2").
		WithArgs("Tuesday", 3).
		WillReturnRows(rows)

	entries, err := repo.FindBySlot(context.Background(), "Tuesday", 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].TeacherID)
	require.NotNil(t, entries[0].Room)
	assert.Equal(t, "Lab 1", *entries[0].Room)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("INSERT INTO timetable_entries").
		WithArgs("Wednesday", 4, nil, int64(2), int64(3), int64(4), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	entry := &models.TimetableEntry{Day: "Wednesday", Period: 4, SubjectID: 2, ClassID: 3, TeacherID: 4}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, int64(11), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateSlotTaken(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	pqErr := &pq.Error{Code: "23505", Constraint: "timetable_entries_teacher_slot_key"}
	mock.ExpectQuery("INSERT INTO timetable_entries").
		WillReturnError(pqErr)

	entry := &models.TimetableEntry{Day: "Wednesday", Period: 4, SubjectID: 2, ClassID: 3, TeacherID: 4}
	err := repo.Create(context.Background(), entry)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "timetable slot already taken")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), int64(9)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
