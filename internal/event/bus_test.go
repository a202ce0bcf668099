package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishOrder(t *testing.T) {
	var b Bus[int]
	var got []string

	b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })

	b.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	var b Bus[int]
	calls := 0
	unsub := b.Subscribe(func(int) { calls++ })

	b.Publish(1)
	unsub()
	unsub() // second call is a no-op
	b.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Len())
}

func TestForwardDropsWhenFull(t *testing.T) {
	ch := make(chan int, 1)
	fwd := Forward(ch)

	fwd(1)
	fwd(2)

	assert.Equal(t, 1, <-ch)
	assert.Len(t, ch, 0)
}
