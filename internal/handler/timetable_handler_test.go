package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
)

type timetableRepoStub struct {
	slot   []models.TimetableEntryDetail
	nextID int64
}

func (m *timetableRepoStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, int, error) {
	return nil, 0, nil
}

func (m *timetableRepoStub) FindByID(ctx context.Context, id int64) (*models.TimetableEntry, error) {
	return nil, sql.ErrNoRows
}

func (m *timetableRepoStub) FindDetailByID(ctx context.Context, id int64) (*models.TimetableEntryDetail, error) {
	return &models.TimetableEntryDetail{TimetableEntry: models.TimetableEntry{ID: id}}, nil
}

func (m *timetableRepoStub) FindBySlot(ctx context.Context, day string, period int) ([]models.TimetableEntryDetail, error) {
	return m.slot, nil
}

func (m *timetableRepoStub) ListByClass(ctx context.Context, classID int64) ([]models.TimetableEntryDetail, error) {
	return nil, nil
}

func (m *timetableRepoStub) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableEntryDetail, error) {
	return nil, nil
}

func (m *timetableRepoStub) Create(ctx context.Context, entry *models.TimetableEntry) error {
	m.nextID++
	entry.ID = m.nextID
	return nil
}

func (m *timetableRepoStub) Update(ctx context.Context, entry *models.TimetableEntry) error {
	return nil
}

func (m *timetableRepoStub) Delete(ctx context.Context, id int64) error {
	return nil
}

type classLookupStub struct{}

func (classLookupStub) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	return &models.Class{ID: id, Name: "Grade 4"}, nil
}

type subjectLookupStub struct{}

func (subjectLookupStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	return &models.Subject{ID: id, Name: "Mathematics"}, nil
}

type teacherLookupStub struct{}

func (teacherLookupStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, FullName: "Teacher One", Active: true}, nil
}

func newTimetableHandler(repo *timetableRepoStub) *TimetableHandler {
	svc := service.NewTimetableService(repo, classLookupStub{}, subjectLookupStub{}, teacherLookupStub{}, nil, nil)
	return NewTimetableHandler(svc)
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func busySlot(day string, period int, classID, teacherID int64) []models.TimetableEntryDetail {
	return []models.TimetableEntryDetail{
		{
			TimetableEntry: models.TimetableEntry{ID: 1, Day: day, Period: period, ClassID: classID, SubjectID: 10, TeacherID: teacherID},
			SubjectName:    "Mathematics",
			ClassName:      "Grade 4",
			TeacherName:    "Teacher One",
		},
	}
}

func TestTimetableHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableRepoStub{})

	payload, _ := json.Marshal(models.TimetableCreateRequest{
		Day: "Monday", Period: 1, SubjectID: 10, ClassID: 1, TeacherID: 100,
	})
	c, w := newGinContext(http.MethodPost, "/timetable", payload)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestTimetableHandlerCreateConflictPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoStub{slot: busySlot("Monday", 1, 2, 100)}
	handler := newTimetableHandler(repo)

	payload, _ := json.Marshal(models.TimetableCreateRequest{
		Day: "Monday", Period: 1, SubjectID: 10, ClassID: 1, TeacherID: 100,
	})
	c, w := newGinContext(http.MethodPost, "/timetable", payload)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
		Data struct {
			Conflicts []models.TimetableConflict `json:"conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	require.Len(t, body.Data.Conflicts, 1)
	assert.Equal(t, models.ConflictTypeTeacher, body.Data.Conflicts[0].Type)
}

func TestTimetableHandlerCheckConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoStub{slot: busySlot("Monday", 1, 1, 200)}
	handler := newTimetableHandler(repo)

	payload, _ := json.Marshal(models.ConflictCheckRequest{
		Day: "Monday", Period: 1, ClassID: 1, TeacherID: 100,
	})
	c, w := newGinContext(http.MethodPost, "/timetable/check-conflicts", payload)

	handler.CheckConflicts(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.ConflictCheckResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasConflicts)
	require.Len(t, body.Data.Conflicts, 1)
	assert.Equal(t, models.ConflictTypeClass, body.Data.Conflicts[0].Type)
}

func TestTimetableHandlerCreateBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableRepoStub{})

	c, w := newGinContext(http.MethodPost, "/timetable", []byte(`{"day":`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
