package lag

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStride(t *testing.T) {
	tests := []struct {
		n, t, want int
	}{
		{3, 1, 1},
		{3, 2, 1},
		{20, 1, 1},
		{100, 1, 9},
		{100, 50, 5},
		{100, 95, 1},
		{100, 99, 1},
		{1000, 1, 99},
		{1000, 500, 50},
		// 0.1n - 0.1t lands just below an integer once both products are
		// rounded; a fused multiply-add would land on it.
		{43, 23, 1},
		{34, 24, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Stride(tt.n, tt.t), "n=%d t=%d", tt.n, tt.t)
	}

	// The fused result Stride must not produce.
	n, lag := 43.0, 23.0
	assert.Equal(t, 2, int(math.FMA(0.1, n, -(0.1 * lag))))
}

func TestLags(t *testing.T) {
	n, err := Lags(3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, c := range []int{-1, 0, 1} {
		_, err := Lags(c)
		assert.ErrorIs(t, err, ErrTooShort, "n=%d", c)
	}
}

func TestTime(t *testing.T) {
	assert.Equal(t, 0.0, Time(0, 100, 0.00025))
	assert.Equal(t, 2*100*0.00025, Time(2, 100, 0.00025))
	assert.Equal(t, 25.0, Time(5, 10, 0.5))
}

func TestStarts(t *testing.T) {
	s, err := Starts(3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, s)

	s, err = Starts(3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s)

	s, err = Starts(100, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 9, 18, 27, 36, 45, 54, 63, 72, 81, 90}, s)
}

func TestStarts_AlwaysOneSample(t *testing.T) {
	for n := 2; n < 300; n++ {
		for lag := 1; lag < n; lag++ {
			s, err := Starts(n, lag)
			require.NoError(t, err)
			require.NotEmpty(t, s, "n=%d t=%d", n, lag)
			assert.Equal(t, 0, s[0])
			assert.Less(t, s[len(s)-1]+lag, n)
		}
	}
}

func TestStarts_OutOfRange(t *testing.T) {
	for _, lag := range []int{-1, 0, 3, 4} {
		_, err := Starts(3, lag)
		assert.ErrorIs(t, err, ErrLag, "t=%d", lag)
	}
}

func TestPartition(t *testing.T) {
	assert.Equal(t, []Chunk{{1, 4}, {5, 7}, {8, 10}}, Partition(10, 3))
	assert.Equal(t, []Chunk{{1, 1}, {2, 2}}, Partition(2, 8))
	assert.Equal(t, []Chunk{{1, 5}}, Partition(5, 0))
	assert.Nil(t, Partition(0, 4))

	assert.Equal(t, 4, Chunk{1, 4}.Len())
	assert.Equal(t, 1, Chunk{7, 7}.Len())
}

func TestPartition_Covers(t *testing.T) {
	for lags := 1; lags < 60; lags++ {
		for workers := 1; workers < 20; workers++ {
			chunks := Partition(lags, workers)
			next := 1
			for _, c := range chunks {
				require.Equal(t, next, c.From)
				require.GreaterOrEqual(t, c.Len(), lags/len(chunks))
				require.LessOrEqual(t, c.Len(), lags/len(chunks)+1)
				next = c.To + 1
			}
			require.Equal(t, lags+1, next)
		}
	}
}

func TestRun_Ordered(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 50} {
		res, err := Run(context.Background(), 20, workers, func(_ context.Context, lag int) (int, error) {
			return lag * lag, nil
		})
		require.NoError(t, err)
		require.Len(t, res, 20)
		for i, v := range res {
			assert.Equal(t, (i+1)*(i+1), v)
		}
	}
}

func TestRun_Error(t *testing.T) {
	errBoom := errors.New("boom")

	res, err := Run(context.Background(), 20, 4, func(_ context.Context, lag int) (int, error) {
		if lag == 5 {
			return 0, errBoom
		}
		return lag, nil
	})
	assert.Nil(t, res)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "lag 5")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, 10, 2, func(_ context.Context, lag int) (int, error) {
		return lag, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
