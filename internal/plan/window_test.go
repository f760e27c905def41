package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSubmissionWindowFirstPeriod(t *testing.T) {
	signup := date(2024, 1, 1)

	w := SubmissionWindow(signup, date(2024, 1, 1))
	assert.Equal(t, 0, w.Index)
	assert.Equal(t, signup, w.Start)
	assert.Equal(t, date(2024, 1, 30), w.End)

	// day 29 is still period one
	w = SubmissionWindow(signup, date(2024, 1, 29))
	assert.Equal(t, 0, w.Index)
}

func TestSubmissionWindowRollsOver(t *testing.T) {
	signup := date(2024, 1, 1)

	// signup day counts as day one, so the second period starts on day 30
	w := SubmissionWindow(signup, date(2024, 1, 30))
	assert.Equal(t, 1, w.Index)
	assert.Equal(t, date(2024, 1, 30), w.Start)
	assert.Equal(t, date(2024, 2, 29), w.End)
}

func TestSubmissionWindowThirdPeriod(t *testing.T) {
	signup := date(2024, 1, 1)

	w := SubmissionWindow(signup, date(2024, 3, 5))
	assert.Equal(t, 2, w.Index)
	assert.Equal(t, date(2024, 2, 29), w.Start)
	assert.Equal(t, date(2024, 3, 30), w.End)
}

func TestSubmissionWindowClockSkew(t *testing.T) {
	signup := date(2024, 6, 10)

	// now before signup clamps to the first period
	w := SubmissionWindow(signup, date(2024, 6, 9))
	assert.Equal(t, 0, w.Index)
	assert.Equal(t, signup, w.Start)
}

func TestSubmissionWindowIgnoresTimeOfDay(t *testing.T) {
	signup := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, 1, 30, 0, 1, 0, 0, time.UTC)

	w := SubmissionWindow(signup, now)
	assert.Equal(t, 1, w.Index)
}
