package health

import (
	"testing"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func check(target string, status domain.HealthStatus, latency int64) domain.HealthCheck {
	return domain.HealthCheck{Target: target, Status: status, LatencyMS: latency}
}

func TestClassifyLatency(t *testing.T) {
	assert.Equal(t, domain.HealthHealthy, ClassifyLatency(0))
	assert.Equal(t, domain.HealthHealthy, ClassifyLatency(500))
	assert.Equal(t, domain.HealthDegraded, ClassifyLatency(501))
}

func TestAggregate_AllHealthy(t *testing.T) {
	latest := map[string]domain.HealthCheck{
		"api": check("api", domain.HealthHealthy, 40),
		"web": check("web", domain.HealthHealthy, 90),
	}

	v := Aggregate([]string{"api", "web"}, latest)

	assert.Equal(t, domain.HealthHealthy, v.Status)
	assert.ElementsMatch(t, []string{"api", "web"}, v.Healthy)
	assert.Empty(t, v.Degraded)
	assert.Empty(t, v.Failed)
	assert.Equal(t, int64(90), v.WorstLatencyMS)
}

func TestAggregate_AnyFailedWins(t *testing.T) {
	latest := map[string]domain.HealthCheck{
		"api": check("api", domain.HealthHealthy, 40),
		"db":  check("db", domain.HealthDegraded, 700),
		"web": check("web", domain.HealthFailed, 5200),
	}

	v := Aggregate([]string{"api", "db", "web"}, latest)

	assert.Equal(t, domain.HealthFailed, v.Status)
	assert.Equal(t, []string{"api"}, v.Healthy)
	assert.Equal(t, []string{"db"}, v.Degraded)
	assert.Equal(t, []string{"web"}, v.Failed)
	assert.Equal(t, int64(5200), v.WorstLatencyMS)
}

func TestAggregate_DegradedWithoutFailures(t *testing.T) {
	latest := map[string]domain.HealthCheck{
		"api": check("api", domain.HealthDegraded, 600),
		"web": check("web", domain.HealthHealthy, 30),
	}

	v := Aggregate([]string{"api", "web"}, latest)

	assert.Equal(t, domain.HealthDegraded, v.Status)
}

func TestAggregate_UnprobedTargetCountsDegraded(t *testing.T) {
	latest := map[string]domain.HealthCheck{
		"api": check("api", domain.HealthHealthy, 40),
	}

	v := Aggregate([]string{"api", "never-probed"}, latest)

	assert.Equal(t, domain.HealthDegraded, v.Status)
	assert.Equal(t, []string{"never-probed"}, v.Degraded)
}

func TestVerdictErrorRate(t *testing.T) {
	v := Verdict{
		Healthy: []string{"a", "b", "c"},
		Failed:  []string{"d"},
	}
	assert.InDelta(t, 0.25, v.ErrorRate(), 1e-9)

	assert.Zero(t, Verdict{}.ErrorRate())
}
