package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasses_Inactive(t *testing.T) {
	f := Filter{Active: false, Threshold: 5, Less: false}
	assert.True(t, f.Passes(-100))
	assert.True(t, f.Passes(100))
}

func TestPasses_GreaterThan(t *testing.T) {
	f := Filter{Active: true, Threshold: 1.0, Less: false}
	assert.True(t, f.Passes(1.1))
	assert.False(t, f.Passes(0.9))
	assert.False(t, f.Passes(1.0))
}

func TestPasses_LessThan(t *testing.T) {
	f := Filter{Active: true, Threshold: 1.0, Less: true}
	assert.True(t, f.Passes(0.9))
	assert.False(t, f.Passes(1.1))
	assert.False(t, f.Passes(1.0))
}
