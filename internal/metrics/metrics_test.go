package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderSourceDone(t *testing.T) {
	ok := SourceSearches.WithLabelValues("test-src", "ok")
	failed := SourceSearches.WithLabelValues("test-src", "error")
	empty := SourceSearches.WithLabelValues("test-src", "empty")
	recipes := SourceRecipes.WithLabelValues("test-src")

	beforeOK, beforeFailed, beforeEmpty := testutil.ToFloat64(ok), testutil.ToFloat64(failed), testutil.ToFloat64(empty)
	beforeRecipes := testutil.ToFloat64(recipes)

	r := Recorder{}
	r.SourceDone("test-src", 3, nil, 120*time.Millisecond)
	r.SourceDone("test-src", 0, errors.New("boom"), time.Second)
	r.SourceDone("test-src", 0, nil, time.Millisecond)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
	assert.Equal(t, beforeEmpty+1, testutil.ToFloat64(empty))
	assert.Equal(t, beforeRecipes+3, testutil.ToFloat64(recipes))
}

func TestRecorderCacheLookup(t *testing.T) {
	hit := CacheLookups.WithLabelValues("hit")
	miss := CacheLookups.WithLabelValues("miss")
	beforeHit, beforeMiss := testutil.ToFloat64(hit), testutil.ToFloat64(miss)

	r := Recorder{}
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)

	assert.Equal(t, beforeHit+1, testutil.ToFloat64(hit))
	assert.Equal(t, beforeMiss+2, testutil.ToFloat64(miss))
}

func TestObserveRequest(t *testing.T) {
	c := HTTPRequests.WithLabelValues("/test_route", "400")
	before := testutil.ToFloat64(c)

	ObserveRequest("/test_route", 400, 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestObserveExtraction(t *testing.T) {
	tests := []struct {
		name      string
		questions int
		err       error
		outcome   string
	}{
		{"complete", 0, nil, "complete"},
		{"clarify", 2, nil, "clarify"},
		{"error", 0, errors.New("llm down"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Extractions.WithLabelValues(tt.outcome)
			before := testutil.ToFloat64(c)
			ObserveExtraction(tt.questions, tt.err)
			assert.Equal(t, before+1, testutil.ToFloat64(c))
		})
	}
}
