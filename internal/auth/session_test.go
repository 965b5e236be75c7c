package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertDashes(t *testing.T) {
	undashed := "1d2d8d66cf723bbf9a0ead6a4b0a52e7"
	want := "1d2d8d66-cf72-3bbf-9a0e-ad6a4b0a52e7"
	assert.Equal(t, want, insertDashes(undashed))
}

func TestInsertDashesLeavesWrongLengthAlone(t *testing.T) {
	s := "not-a-uuid"
	assert.Equal(t, s, insertDashes(s))
}
