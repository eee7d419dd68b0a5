package db

import (
	"strings"
	"time"

	"codegalaxy/models"
)

var languageKeyReplacer = strings.NewReplacer(".", "_", "$", "_")

// languageKey makes a language name safe to use as a document key.
func languageKey(language string) string {
	key := languageKeyReplacer.Replace(strings.TrimSpace(language))
	if key == "" {
		return "unknown"
	}
	return key
}

// usageWindow returns the first and last day keys of a trailing window.
func usageWindow(days int, now time.Time) (from, to string, n int) {
	if days <= 0 {
		days = 7
	}
	return models.DayKey(now.AddDate(0, 0, -(days - 1))), models.DayKey(now), days
}

// summarizeUsage folds daily rows into one summary. The response time is
// the plain mean of the daily averages, not weighted by volume.
func summarizeUsage(model string, days int, rows []models.ModelUsageStat) models.ModelStats {
	stats := models.ModelStats{ModelName: model, Days: days}
	var avgSum float64
	for _, row := range rows {
		stats.TotalUses += row.TotalUses
		stats.SuccessfulUses += row.SuccessfulUses
		stats.FailedUses += row.FailedUses
		avgSum += row.AverageResponseTime
	}
	if stats.TotalUses > 0 {
		stats.SuccessRate = float64(stats.SuccessfulUses) / float64(stats.TotalUses) * 100
	}
	if len(rows) > 0 {
		stats.AverageResponseTime = avgSum / float64(len(rows))
	}
	return stats
}
