package reindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 5)

	tracker.Start()
	tracker.Add(3, 6)
	assert.Empty(t, buf.String(), "below the report interval")

	tracker.Add(3, 4)
	assert.Contains(t, buf.String(), "6/10 documents")
	assert.Equal(t, 10, tracker.Pages())

	tracker.Finish()
	assert.Contains(t, buf.String(), "10/10 documents (100.0%)")
	assert.Contains(t, buf.String(), "\n")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 1)
	tracker.Start()
	tracker.Add(5, 5)
	assert.Contains(t, buf.String(), "2/2 documents")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 1)
	tracker.Add(1, 1)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
