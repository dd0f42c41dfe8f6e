package store_test

import (
	"sync"
	"testing"

	"github.com/kroma-labs/smoelen/store"
	"github.com/stretchr/testify/assert"
)

func TestWritable_Subscribe(t *testing.T) {
	w := store.NewWritable(1)

	var seen []int
	unsubscribe := w.Subscribe(func(v int) { seen = append(seen, v) })
	assert.Equal(t, []int{1}, seen, "given a subscription, then the current value is delivered at once")

	w.Set(2)
	w.Update(func(v int) int { return v * 10 })
	assert.Equal(t, []int{1, 2, 20}, seen)
	assert.Equal(t, 20, w.Get())

	unsubscribe()
	unsubscribe()
	w.Set(3)
	assert.Equal(t, []int{1, 2, 20}, seen, "given an unsubscribe, then no more values arrive")
}

func TestWritable_SubscriberOrder(t *testing.T) {
	w := store.NewWritable("a")

	var order []string
	w.Subscribe(func(string) { order = append(order, "first") })
	w.Subscribe(func(string) { order = append(order, "second") })
	order = nil

	w.Set("b")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestWritable_SubscriberMaySet(t *testing.T) {
	w := store.NewWritable(0)
	mirror := store.NewWritable(0)

	w.Subscribe(func(v int) { mirror.Set(v + 1) })
	w.Set(5)

	assert.Equal(t, 6, mirror.Get())
}

func TestWritable_ConcurrentUpdate(t *testing.T) {
	w := store.NewWritable(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, w.Get())
}

func TestReadonly(t *testing.T) {
	w := store.NewWritable([]string{"x"})
	r := w.Readonly()

	var got []string
	r.Subscribe(func(v []string) { got = v })
	w.Set([]string{"x", "y"})

	assert.Equal(t, []string{"x", "y"}, r.Get())
	assert.Equal(t, []string{"x", "y"}, got)
}
