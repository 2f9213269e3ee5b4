package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_CanonicalBijection(t *testing.T) {
	t.Parallel()

	seen := make(map[Code]bool, len(CanonicalOrder))
	for _, code := range CanonicalOrder {
		hist, ok := CanonicalHistory(code)
		require.Truef(t, ok, "no canonical history for %s", code)

		got, err := Classify(hist)
		require.NoError(t, err)
		assert.Equal(t, code, got)

		assert.Falsef(t, seen[got], "code %s mapped twice", got)
		seen[got] = true
	}
	assert.Len(t, seen, 13)
}

func TestClassify_HistoryShape(t *testing.T) {
	t.Parallel()

	for _, code := range CanonicalOrder {
		hist, _ := CanonicalHistory(code)

		assert.Equal(t, PairState{Unborn, Unborn}, hist[0])
		assert.True(t, hist[len(hist)-1].Terminal())

		for i := 1; i < len(hist); i++ {
			assert.NotEqual(t, hist[i-1], hist[i], "consecutive duplicate in %s", code)
			// Monotone advancement, at most one level per coordinate per step.
			dFirst := hist[i].First - hist[i-1].First
			dSecond := hist[i].Second - hist[i-1].Second
			assert.GreaterOrEqual(t, dFirst, EndpointState(0))
			assert.LessOrEqual(t, dFirst, EndpointState(1))
			assert.GreaterOrEqual(t, dSecond, EndpointState(0))
			assert.LessOrEqual(t, dSecond, EndpointState(1))
		}
	}
}

func TestClassify_Unclassifiable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		hist History
	}{
		{"empty", History{}},
		{"missing terminal", History{{Unborn, Unborn}, {Alive, Alive}}},
		{"missing origin", History{{Alive, Alive}, {Dead, Dead}}},
		{"regressing state", History{{Unborn, Unborn}, {Alive, Alive}, {Unborn, Alive}, {Dead, Dead}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Classify(tc.hist)
			assert.ErrorIs(t, err, ErrUnclassifiable)
		})
	}
}

func TestInverse_PairsAndEquals(t *testing.T) {
	t.Parallel()

	for _, pair := range InversePairs {
		assert.Equal(t, pair[1], Inverse(pair[0]))
		assert.Equal(t, pair[0], Inverse(pair[1]))
	}
	assert.Equal(t, Equals, Inverse(Equals))
}

func TestCanonicalOrder_CoversAllCodes(t *testing.T) {
	t.Parallel()

	assert.Len(t, CanonicalOrder, 13)
	for _, code := range CanonicalOrder {
		assert.True(t, Valid(code))
		assert.NotEqual(t, "unknown", code.Name())
	}
	assert.False(t, Valid(Code("x")))
}
