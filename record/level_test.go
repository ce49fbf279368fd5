package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_StringRoundTrip(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Level{}, "/"},
		{Level{1}, "/1"},
		{Level{2, 3, 1}, "/2/3/1"},
		{Level{10, 200, 3000}, "/10/200/3000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
			parsed, err := ParseLevel(tt.level.String())
			require.NoError(t, err)
			assert.True(t, parsed.Equal(tt.level), "round trip changed %s", tt.level)
		})
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	for _, s := range []string{"/a", "/1/x", "/0", "/-2/1"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseLevel(s)
			assert.Error(t, err)
		})
	}
}

func TestLevel_ChildAndSibling(t *testing.T) {
	root := RootLevel
	first := root.Child()
	assert.True(t, first.Equal(Level{1}))

	second := first.NextSibling()
	assert.True(t, second.Equal(Level{2}))

	nested := second.Child().NextSibling().NextSibling()
	assert.True(t, nested.Equal(Level{2, 3}))

	// Deriving must not mutate the receiver.
	assert.True(t, first.Equal(Level{1}), "NextSibling mutated its receiver")
	assert.True(t, second.Equal(Level{2}), "Child mutated its receiver")
}

func TestLevel_Parent(t *testing.T) {
	parent, ok := Level{2, 3, 1}.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(Level{2, 3}))

	_, ok = RootLevel.Parent()
	assert.False(t, ok, "root has no parent")

	assert.Panics(t, func() { RootLevel.NextSibling() })
	assert.Panics(t, func() { RootLevel.Last() })
}

func TestLevel_IsSiblingOf(t *testing.T) {
	assert.True(t, Level{2, 3}.IsSiblingOf(Level{2, 5}))
	assert.False(t, Level{2, 3}.IsSiblingOf(Level{3, 3}))
	assert.False(t, Level{2, 3}.IsSiblingOf(Level{2, 3, 1}))
	assert.True(t, RootLevel.IsSiblingOf(RootLevel))
	assert.False(t, RootLevel.IsSiblingOf(Level{1}))
}

func TestCompareLevels_MatchesListOrder(t *testing.T) {
	ordered := []Level{
		{1},
		{1, 1},
		{1, 2},
		{2},
		{2, 3},
		{2, 3, 1},
		{2, 10},
		{10},
	}
	for i := range ordered {
		for j := range ordered {
			got := CompareLevels(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Equal(t, -1, got, "%s < %s", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, got, "%s > %s", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, got)
			}
		}
	}
}

func TestLevel_AsListCopies(t *testing.T) {
	level := Level{1, 2}
	list := level.AsList()
	list[0] = 99
	assert.True(t, level.Equal(Level{1, 2}), "AsList aliased the level")
}
