package dispatch

import (
	"sort"
	"time"

	"github.com/innovategy/innosystem/internal/data"
)

// Health is the runner health classification from spec §4.5, a pure
// function of last_heartbeat at evaluation time.
type Health string

const (
	HealthHealthy Health = "HEALTHY"
	HealthWarning Health = "WARNING"
	HealthCritical Health = "CRITICAL"
	HealthUnknown Health = "UNKNOWN"
)

// healthRank orders statuses for FindCompatibleRunners's sort: Healthy
// before Warning before Critical before Unknown.
var healthRank = map[Health]int{
	HealthHealthy:  0,
	HealthWarning:  1,
	HealthCritical: 2,
	HealthUnknown:  3,
}

// Thresholds holds the H/W health boundaries (spec §4.5); both are
// configurable via internal/config.
type Thresholds struct {
	Healthy time.Duration // H
	Warning time.Duration // W
}

// DefaultThresholds matches the spec's H=60s, W=180s.
var DefaultThresholds = Thresholds{
	Healthy: 60 * time.Second,
	Warning: 180 * time.Second,
}

// ClassifyHealth implements spec §4.5's table exactly, including the P7
// boundary conditions (age <= H is Healthy, age > W is Critical).
func ClassifyHealth(runner data.Runner, now time.Time, thresholds Thresholds) Health {
	if runner.Status != data.RunnerStatusActive {
		return HealthUnknown
	}
	if runner.LastHeartbeat == nil {
		return HealthCritical
	}

	age := now.Sub(*runner.LastHeartbeat)
	switch {
	case age <= thresholds.Healthy:
		return HealthHealthy
	case age <= thresholds.Warning:
		return HealthWarning
	default:
		return HealthCritical
	}
}

// sortByHealthThenID orders runners by health rank, breaking ties by id for
// determinism (spec §4.5).
func sortByHealthThenID(runners []data.Runner, health map[string]Health) {
	sort.SliceStable(runners, func(i, j int) bool {
		ri, rj := healthRank[health[runners[i].ID]], healthRank[health[runners[j].ID]]
		if ri != rj {
			return ri < rj
		}
		return runners[i].ID < runners[j].ID
	})
}
