package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox_Dimensions(t *testing.T) {
	box := Box{X1: 10, Y1: 20, X2: 110, Y2: 70}

	assert.Equal(t, 100.0, box.Width())
	assert.Equal(t, 50.0, box.Height())
}
