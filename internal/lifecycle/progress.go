package lifecycle

import (
	"github.com/opsdesk-api/internal/models"
)

const (
	progressStep = 25
	progressCap  = 90
)

// Progress derives a completion percentage from a task's logs. Only a
// complete log reaches 100; progress logs alone stop at 90.
func Progress(logs []models.TaskLog) int {
	count := 0
	for _, l := range logs {
		switch l.LogType {
		case models.LogTypeComplete:
			return 100
		case models.LogTypeProgress:
			count++
		}
	}
	return min(count*progressStep, progressCap)
}
