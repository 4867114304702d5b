package tweetstream

import "time"

// Stats is a point-in-time view of a session's progress.
type Stats struct {
	// Count is the number of objects delivered so far.
	Count int64
	// Keepalives is the number of empty heartbeat lines skipped.
	Keepalives int64
	// Rate is objects per second over the last completed rate period.
	Rate float64
	// StartedAt is when the stream opened; zero before the first pull.
	StartedAt time.Time
	// Connected is true while the stream is open and healthy.
	Connected bool
}

// rateMeter measures delivery rate over consecutive fixed windows.
type rateMeter struct {
	period      time.Duration
	windowStart time.Time
	windowCount int64
	rate        float64
}

func (m *rateMeter) start(now time.Time) {
	m.windowStart = now
	m.windowCount = 0
	m.rate = 0
}

// observe counts one delivered object and closes the window once period has elapsed.
func (m *rateMeter) observe(now time.Time) {
	m.windowCount++
	elapsed := now.Sub(m.windowStart)
	if elapsed >= m.period && elapsed > 0 {
		m.rate = float64(m.windowCount) / elapsed.Seconds()
		m.windowCount = 0
		m.windowStart = now
	}
}
