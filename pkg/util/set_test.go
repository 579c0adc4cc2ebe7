package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/taskmaster/pkg/util"
)

func TestSetOfDeduplicates(t *testing.T) {
	s := util.SetOf("a", "b", "a", "c", "b")
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("a"))
	assert.True(t, s.Contains("c"))
}

func TestSetAddRemove(t *testing.T) {
	s := util.Set[int]{}
	assert.True(t, s.IsEmpty())

	s.Add(1)
	s.Add(2)
	s.Add(1)
	assert.Equal(t, 2, s.Len())

	s.Remove(1)
	s.Remove(99)
	assert.False(t, s.Contains(1))
	assert.True(t, s.Contains(2))
}

func TestSorted(t *testing.T) {
	s := util.SetOf("charlie", "alpha", "bravo")
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, util.Sorted(s))
	assert.Empty(t, util.Sorted(util.Set[string]{}))
}
