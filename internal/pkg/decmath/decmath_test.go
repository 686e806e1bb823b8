package decmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	assert.True(t, LTE(97, 97))
	assert.True(t, GTE(109, 109))
	assert.True(t, LT(104.4999, 104.5))
	assert.True(t, GT(0.0001, 0))
	assert.Equal(t, 0, Compare(1.10, 1.1))
}

func TestFromFloatNaN(t *testing.T) {
	assert.True(t, FromFloat(math.NaN()).IsZero())
	assert.True(t, FromFloat(math.Inf(1)).IsZero())
	assert.Equal(t, 1.5, ToFloat(FromFloat(1.5)))
}
