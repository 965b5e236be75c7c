package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name string
		p    Protocol
		want bool
	}{
		{"below range", R1_8, false},
		{"min of range", Min(), true},
		{"max of range", Max(), true},
		{"mid range", R1_21, true},
		{"just above max", Max() + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.p))
		})
	}
}

func TestMinMaxOrdering(t *testing.T) {
	assert.True(t, Min().Less(Max()))
	assert.True(t, Max().GreaterEqual(Min()))
}

func TestRangeString(t *testing.T) {
	s := Range()
	assert.Contains(t, s, "protocol")
}

func TestSupportedIsContiguousTail(t *testing.T) {
	// SPEC_FULL.md restricts runtime support to a contiguous tail of the full
	// version table (764-769), even though the registry carries gates for 47-769.
	assert.Equal(t, R1_20_2, Min())
	assert.Equal(t, R1_21_4, Max())
	for _, p := range Supported {
		assert.True(t, p >= R1_20_2)
		assert.True(t, p <= R1_21_4)
	}
}
