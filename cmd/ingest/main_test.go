package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampWorkers(t *testing.T) {
	assert.Equal(t, 1, clampWorkers(0))
	assert.Equal(t, 1, clampWorkers(-4))
	assert.Equal(t, 1, clampWorkers(1))
	assert.Equal(t, 8, clampWorkers(8))
}

func TestSlugOf(t *testing.T) {
	assert.Equal(t, "a-recorded-talk", slugOf("A Recorded Talk"))
	assert.Equal(t, "under-scored", slugOf("under_scored"))
	assert.Equal(t, "dotted-name", slugOf(" dotted.name "))
}
