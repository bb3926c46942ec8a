package postgres

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(math.NaN()))

	v := nullable(101.5)
	require.NotNil(t, v)
	assert.Equal(t, 101.5, *v)

	assert.True(t, math.IsNaN(deref(nullable(math.NaN()))))
	assert.Equal(t, 0.0, deref(nullable(0)))
}
