package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		annotation string
		want       time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"6 months", 6 * 30 * 24 * time.Hour},
		{"1h", time.Hour},
		{"15s", 15 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.annotation, func(t *testing.T) {
			got, err := ToSeconds(tt.annotation)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestToSeconds_Unknown(t *testing.T) {
	_, err := ToSeconds("30 fortnights")
	require.Error(t, err)
}

func TestSlicePeriod_CoversWholePeriodWithNoGaps(t *testing.T) {
	// Property 6: slices cover [now-period, now] contiguously.
	slices, err := SlicePeriod("3d", "1d", false)
	require.NoError(t, err)
	require.Len(t, slices, 3)
	require.Contains(t, slices[0], "..")
	require.True(t, slices[len(slices)-1][0] == '>')
	for i := 0; i < len(slices)-1; i++ {
		_, stop, _ := strings.Cut(slices[i], "..")
		start, _, _ := strings.Cut(strings.TrimPrefix(slices[i+1], ">"), "..")
		require.Equal(t, stop, start)
	}
}

func TestSlicePeriod_NewestFirstReversesOrder(t *testing.T) {
	oldest, err := SlicePeriod("3d", "1d", false)
	require.NoError(t, err)
	newest, err := SlicePeriod("3d", "1d", true)
	require.NoError(t, err)

	require.Equal(t, len(oldest), len(newest))
	require.Equal(t, oldest[0], newest[len(newest)-1])
}

func TestQueue_GetPutAndStatus(t *testing.T) {
	q := NewQueue([]string{"a", "b"})

	v, ok := q.Get()
	require.True(t, ok)
	require.Equal(t, "a", v)

	q.Put("c")
	q.TaskDone()

	done, total := q.Status()
	require.Equal(t, 1, done)
	require.Equal(t, 3, total)

	v, ok = q.Get()
	require.True(t, ok)
	require.Equal(t, "b", v)

	v, ok = q.Get()
	require.True(t, ok)
	require.Equal(t, "c", v)

	_, ok = q.Get()
	require.False(t, ok)
}
