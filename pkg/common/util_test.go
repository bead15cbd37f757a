package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOr(t *testing.T) {
	const key = "ENVCTL_TEST_GET_ENV_OR"

	_ = os.Unsetenv(key)
	assert.Equal(t, "fallback", GetEnvOr(key, "fallback"))

	t.Setenv(key, "   ")
	assert.Equal(t, "   ", GetEnvOr(key, "fallback"))

	t.Setenv(key, "")
	assert.Equal(t, "fallback", GetEnvOr(key, "fallback"))

	t.Setenv(key, "value")
	assert.Equal(t, "value", GetEnvOr(key, "fallback"))
}

func TestMapperAndReducer(t *testing.T) {
	doubled := Mapper([]int{1, 2, 3}, func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)

	sum := Reducer([]float64{1.5, 2.5}, func(acc float64, v float64) float64 { return acc + v }, 0)
	assert.Equal(t, 4.0, sum)

	assert.Empty(t, Mapper([]int{}, func(i int) int { return i }))
}
