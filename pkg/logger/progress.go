package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker logs periodic progress for long statement batches. Safe
// for use from multiple reconciliation workers.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker for an operation over total items.
// A zero interval defaults to logging every 5 seconds.
func NewProgressTracker(operation string, total int64, interval time.Duration, log Logger) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	if interval == 0 {
		interval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      log.WithComponent("progress"),
		operation:   operation,
		total:       total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: interval,
	}

	tracker.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Info("Starting operation")

	return tracker
}

// Increment advances the counter by one and logs at the configured interval.
func (p *ProgressTracker) Increment() {
	p.Add(1)
}

// Add advances the counter by delta and logs at the configured interval.
func (p *ProgressTracker) Add(delta int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current += delta
	now := time.Now()
	if now.Sub(p.lastLogTime) >= p.logInterval {
		p.logProgress(now)
		p.lastLogTime = now
	}
}

// Complete logs final statistics for the operation.
func (p *ProgressTracker) Complete() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(p.current) / duration.Seconds()
	}

	p.logger.WithFields(Fields{
		"operation": p.operation,
		"total":     p.total,
		"processed": p.current,
		"duration":  duration.String(),
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}).Info("Operation completed")
}

// CompleteWithError logs final statistics when the operation failed.
func (p *ProgressTracker) CompleteWithError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)
	p.logger.WithError(err).WithFields(Fields{
		"operation": p.operation,
		"total":     p.total,
		"processed": p.current,
		"duration":  duration.String(),
	}).Error("Operation completed with error")
}

// GetStats returns a snapshot of the current progress.
func (p *ProgressTracker) GetStats() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	duration := time.Since(p.startTime)
	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.current) / duration.Seconds()
	}

	var percentage float64
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}

	return ProgressStats{
		Operation:  p.operation,
		Total:      p.total,
		Current:    p.current,
		Percentage: percentage,
		Duration:   duration,
		Rate:       rate,
	}
}

func (p *ProgressTracker) logProgress(now time.Time) {
	duration := now.Sub(p.startTime)
	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.current) / duration.Seconds()
	}

	fields := Fields{
		"operation": p.operation,
		"processed": p.current,
		"rate":      fmt.Sprintf("%.2f/sec", rate),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(p.current)/float64(p.total)*100)
	}

	p.logger.WithFields(fields).Info("Progress update")
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation  string        `json:"operation"`
	Total      int64         `json:"total"`
	Current    int64         `json:"current"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
	Rate       float64       `json:"rate"`
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	if ps.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%) at %.2f/sec",
			ps.Operation, ps.Current, ps.Total, ps.Percentage, ps.Rate)
	}
	return fmt.Sprintf("%s: %d processed at %.2f/sec, elapsed: %v",
		ps.Operation, ps.Current, ps.Rate, ps.Duration)
}
