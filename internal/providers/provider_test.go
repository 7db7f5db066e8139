package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroflow/petroflow/internal/errs"
)

func TestNormalizeWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

	t.Run("truncates to UTC midnight", func(t *testing.T) {
		loc := time.FixedZone("EST", -5*3600)
		s, e, clamped, err := normalizeWindow("test",
			time.Date(2026, 8, 10, 23, 0, 0, 0, loc),
			time.Date(2026, 8, 20, 1, 0, 0, 0, loc), now)
		require.NoError(t, err)
		assert.False(t, clamped)
		assert.Equal(t, day(2026, 8, 11), s)
		assert.Equal(t, day(2026, 8, 20), e)
	})

	t.Run("clamps future end", func(t *testing.T) {
		_, e, clamped, err := normalizeWindow("test",
			day(2026, 8, 1), day(2026, 12, 31), now)
		require.NoError(t, err)
		assert.True(t, clamped)
		assert.Equal(t, day(2026, 8, 25), e)
	})

	t.Run("start after end fails", func(t *testing.T) {
		_, _, _, err := normalizeWindow("test", day(2026, 9, 1), day(2026, 8, 1), now)
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})
}

func TestParseWireValue(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want float64
		ok   bool
	}{
		{"number", 74.25, 74.25, true},
		{"numeric string", "74.25", 74.25, true},
		{"missing dot", ".", 0, false},
		{"empty string", "", 0, false},
		{"null", nil, 0, false},
		{"garbage", "n/a", 0, false},
		{"bool", true, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseWireValue(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBackoffFor(t *testing.T) {
	c := &restClient{backoffBase: 2 * time.Second, backoffCap: 10 * time.Second}

	assert.Equal(t, 2*time.Second, c.backoffFor(2))
	assert.Equal(t, 4*time.Second, c.backoffFor(3))
	assert.Equal(t, 8*time.Second, c.backoffFor(4))
	assert.Equal(t, 10*time.Second, c.backoffFor(5), "capped")
}
