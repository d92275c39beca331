package logger

import (
	"sync"
	"time"
)

// ProgressTracker counts finished units of a multi-step operation (sheets of a
// workbook, files of an upload) and logs one line per completed unit.
// Safe for concurrent use.
type ProgressTracker struct {
	logger    Logger
	operation string
	total     int
	done      int
	failed    int
	startTime time.Time
	mutex     sync.Mutex
}

// ProgressStats is a snapshot of a tracker.
type ProgressStats struct {
	Operation string        `json:"operation"`
	Total     int           `json:"total"`
	Done      int           `json:"done"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// NewProgressTracker creates a tracker. A nil logger falls back to the global one.
func NewProgressTracker(log Logger, operation string, total int) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	return &ProgressTracker{
		logger:    log.WithComponent("progress"),
		operation: operation,
		total:     total,
		startTime: time.Now(),
	}
}

// Step records one finished unit. A non-nil err marks the unit as failed.
func (p *ProgressTracker) Step(unit string, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.done++
	fields := Fields{
		"operation": p.operation,
		"unit":      unit,
		"done":      p.done,
		"total":     p.total,
	}
	if err != nil {
		p.failed++
		p.logger.WithError(err).WithFields(fields).Warn("Step failed")
		return
	}
	p.logger.WithFields(fields).Debug("Step completed")
}

// Complete logs the final statistics and returns them.
func (p *ProgressTracker) Complete() ProgressStats {
	stats := p.Stats()
	p.logger.WithFields(Fields{
		"operation": stats.Operation,
		"done":      stats.Done,
		"failed":    stats.Failed,
		"duration":  stats.Duration.String(),
	}).Info("Operation completed")
	return stats
}

// Stats returns current progress statistics
func (p *ProgressTracker) Stats() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return ProgressStats{
		Operation: p.operation,
		Total:     p.total,
		Done:      p.done,
		Failed:    p.failed,
		Duration:  time.Since(p.startTime),
	}
}
