package mapslicehelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []int{1, 2, 7}, SortedKeys(map[int]string{7: "c", 1: "a", 2: "b"}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestOrderedMap(t *testing.T) {
	m := orderedmap.New[int, string]()
	m.Set(3, "three")
	m.Set(1, "one")
	m.Set(2, "two")
	m.Delete(1)
	assert.Equal(t, []string{"three", "two"}, OrderedMapValues(m))
}
