package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeBound(t *testing.T) {
	got, err := parseTimeBound("start_at", "", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTimeBound("start_at", "2024-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseTimeBound("end_at", "2024-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC), *got)

	got, err = parseTimeBound("start_at", "2024-03-01T10:00:00Z", false)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = parseTimeBound("end_at", "yesterday", true)
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "end_at", verrs.Errors[0].Field)
	assert.Equal(t, "invalid_end_at", verrs.Errors[0].Code)
}

func TestParseOptionalYear(t *testing.T) {
	year, err := parseOptionalYear(" 2023 ")
	require.NoError(t, err)
	assert.Equal(t, 2023, *year)

	_, err = parseOptionalYear("twenty")
	assert.Error(t, err)
}
