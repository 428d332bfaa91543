package service

import (
	"math"

	"github.com/elimu-labs/elimu-api/internal/models"
)

// round2 rounds to two decimal places, the precision used for every rate and
// average in API responses.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// attendanceRate returns present/total as a percentage. Zero totals yield 0.
func attendanceRate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(present) / float64(total) * 100)
}

// scoreStatistics summarises the numeric scores in a record set. Returns nil
// when no record carries a score.
func scoreStatistics(records []models.StudentPerformanceDetail) *models.ScoreStatistics {
	var scores []float64
	for _, rec := range records {
		if rec.Score != nil {
			scores = append(scores, *rec.Score)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	sum := 0.0
	highest := scores[0]
	lowest := scores[0]
	for _, s := range scores {
		sum += s
		if s > highest {
			highest = s
		}
		if s < lowest {
			lowest = s
		}
	}

	return &models.ScoreStatistics{
		Count:   len(scores),
		Average: round2(sum / float64(len(scores))),
		Highest: highest,
		Lowest:  lowest,
	}
}

// percentage derives score/max as a percentage, or nil when no score exists
// or the maximum is not positive.
func percentage(score *float64, maxScore float64) *float64 {
	if score == nil || maxScore <= 0 {
		return nil
	}
	p := round2(*score / maxScore * 100)
	return &p
}
