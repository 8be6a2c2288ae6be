package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovieSchema_Fixture(t *testing.T) {
	s := MovieSchema()
	assert.Equal(t, "Movie", MustNode(s, "Movie").Name)
	assert.Panics(t, func() { MustNode(s, "Production") })
	assert.Panics(t, func() { MustEntity(s, "Nope") })
}
