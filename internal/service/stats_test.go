package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-labs/elimu-api/internal/models"
)

func scorePtr(v float64) *float64 { return &v }

func TestAttendanceRate(t *testing.T) {
	assert.Equal(t, 0.0, attendanceRate(0, 0))
	assert.Equal(t, 100.0, attendanceRate(5, 5))
	assert.Equal(t, 66.67, attendanceRate(2, 3))
	assert.Equal(t, 93.33, attendanceRate(28, 30))
}

func TestScoreStatistics(t *testing.T) {
	records := []models.StudentPerformanceDetail{
		{StudentPerformance: models.StudentPerformance{Score: scorePtr(85)}},
		{StudentPerformance: models.StudentPerformance{Score: scorePtr(45)}},
		{StudentPerformance: models.StudentPerformance{Score: nil}},
	}

	stats := scoreStatistics(records)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 65.0, stats.Average)
	assert.Equal(t, 85.0, stats.Highest)
	assert.Equal(t, 45.0, stats.Lowest)
}

func TestScoreStatisticsNoNumericScores(t *testing.T) {
	records := []models.StudentPerformanceDetail{
		{StudentPerformance: models.StudentPerformance{Score: nil}},
		{StudentPerformance: models.StudentPerformance{Score: nil}},
	}
	assert.Nil(t, scoreStatistics(records))
	assert.Nil(t, scoreStatistics(nil))
}

func TestPercentage(t *testing.T) {
	assert.Nil(t, percentage(nil, 100))
	assert.Nil(t, percentage(scorePtr(50), 0))

	p := percentage(scorePtr(42.5), 50)
	require.NotNil(t, p)
	assert.Equal(t, 85.0, *p)

	p = percentage(scorePtr(1), 3)
	require.NotNil(t, p)
	assert.Equal(t, 33.33, *p)
}
