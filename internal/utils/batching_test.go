package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchBuffer_AddReportsFull(t *testing.T) {
	b := NewBatchBuffer[int](3)

	assert.False(t, b.Add(1))
	assert.False(t, b.Add(2))
	assert.True(t, b.Add(3))
	assert.Equal(t, 3, b.Size())
}

func TestBatchBuffer_DrainEmpties(t *testing.T) {
	b := NewBatchBuffer[string](2)
	b.Add("a")

	assert.Equal(t, []string{"a"}, b.Drain())
	assert.Zero(t, b.Size())
	assert.Nil(t, b.Drain())
}

func TestBatchBuffer_ConcurrentAdds(t *testing.T) {
	b := NewBatchBuffer[int](1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Add(n)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, b.Size())
}
