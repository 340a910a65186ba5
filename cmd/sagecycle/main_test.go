package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdin/sagecycle/config"
	"github.com/verdin/sagecycle/types"
)

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handleHealthz(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestCleanupTargets_DefaultsToConfiguredTypes(t *testing.T) {
	cleanupTypes = nil
	cfg := config.Default()

	targets, err := cleanupTargets(cfg)
	require.NoError(t, err)

	assert.Len(t, targets, len(cfg.Retention))
	for _, rt := range targets {
		_, ok := cfg.Retention[rt]
		assert.True(t, ok, "target %s has no configured policy", rt)
	}
}

func TestCleanupTargets_ParsesFlagValues(t *testing.T) {
	cleanupTypes = []string{"training-job", "model"}
	defer func() { cleanupTypes = nil }()

	targets, err := cleanupTargets(config.Default())
	require.NoError(t, err)
	assert.Equal(t, []types.ResourceType{types.TypeTrainingJob, types.TypeModel}, targets)
}

func TestCleanupTargets_RejectsUnknownType(t *testing.T) {
	cleanupTypes = []string{"volume"}
	defer func() { cleanupTypes = nil }()

	_, err := cleanupTargets(config.Default())
	require.Error(t, err)
}

func TestWaitStatusSets_AreDisjoint(t *testing.T) {
	for rt, sets := range waitStatusSets {
		for _, term := range sets.terminal {
			for _, fail := range sets.failure {
				assert.NotEqual(t, term, fail, "%s: %q is both terminal and failure", rt, term)
			}
		}
	}
}

func TestWaitStatusSets_FailuresMapToFailed(t *testing.T) {
	for rt, sets := range waitStatusSets {
		for _, raw := range sets.failure {
			assert.Equal(t, types.StatusFailed, types.MapRawStatus(rt, raw),
				"%s/%s should map to Failed", rt, raw)
		}
	}
}
