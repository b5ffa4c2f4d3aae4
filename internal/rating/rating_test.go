package rating

import (
	"errors"
	"math/rand"
	"testing"

	"librarymanager/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "lower bound is exclusive", value: 0, wantErr: true},
		{name: "negative", value: -3, wantErr: true},
		{name: "just above zero", value: 0.1},
		{name: "upper bound is inclusive", value: 10},
		{name: "above ten", value: 10.01, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, NoScore, Mean(nil))
	assert.Equal(t, 7.0, Mean([]entity.Score{{Value: 8}, {Value: 6}}))
}

func TestMean_OrderIndependent(t *testing.T) {
	values := []float64{1, 2.5, 10, 7, 3.3, 9.9, 4}
	scores := make([]entity.Score, len(values))
	var sum float64
	for i, v := range values {
		scores[i] = entity.Score{ID: int64(i + 1), Value: v}
		sum += v
	}
	want := sum / float64(len(values))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(scores), func(a, b int) { scores[a], scores[b] = scores[b], scores[a] })
		assert.InDelta(t, want, Mean(scores), 1e-9)
	}
}

func TestIncremental(t *testing.T) {
	assert.Equal(t, 8.0, Incremental(NoScore, 0, 8))
	assert.Equal(t, 7.0, Incremental(8, 1, 6))
	assert.InDelta(t, 8.0, Incremental(7, 2, 10), 1e-9)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRecompute, s)

	s, err = ParseStrategy(" Incremental ")
	require.NoError(t, err)
	assert.Equal(t, StrategyIncremental, s)
	assert.False(t, s.NeedsHistory())

	_, err = ParseStrategy("median")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestEngine_Apply(t *testing.T) {
	t.Run("recompute", func(t *testing.T) {
		e := NewEngine(StrategyRecompute)
		b := entity.Book{ID: 1, Score: NoScore}

		require.NoError(t, e.Apply(&b, entity.Score{Value: 8, BookID: 1}))
		assert.Equal(t, 8.0, b.Score)

		b.Returners = append(b.Returners, 1)
		require.NoError(t, e.Apply(&b, entity.Score{Value: 6, BookID: 1}))
		assert.Equal(t, 7.0, b.Score)
		assert.Len(t, b.Scores, 2)
	})

	t.Run("incremental", func(t *testing.T) {
		e := NewEngine(StrategyIncremental)
		b := entity.Book{ID: 1, Score: NoScore}

		require.NoError(t, e.Apply(&b, entity.Score{Value: 8}))
		b.Returners = append(b.Returners, 1)
		require.NoError(t, e.Apply(&b, entity.Score{Value: 6}))
		assert.Equal(t, 7.0, b.Score)
		assert.Empty(t, b.Scores)
	})

	t.Run("rejects out of range", func(t *testing.T) {
		e := NewEngine(StrategyRecompute)
		b := entity.Book{ID: 1, Score: NoScore}

		assert.ErrorIs(t, e.Apply(&b, entity.Score{Value: 11}), ErrOutOfRange)
		assert.Equal(t, NoScore, b.Score)
	})
}
