package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRefcounts(t *testing.T) {
	r := NewRegistry()

	a1 := testClient("user-a", "Alice")
	a2 := testClient("user-a", "Alice")
	b1 := testClient("user-b", "Bob")

	assert.True(t, r.Attach(a1), "first connection for a user")
	assert.False(t, r.Attach(a2), "second tab for the same user")
	assert.True(t, r.Attach(b1))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.ConnectionCount("user-a"))
	assert.Equal(t, 1, r.ConnectionCount("user-b"))

	last, attached := r.Detach(a1)
	assert.True(t, attached)
	assert.False(t, last, "user-a still has a tab open")

	last, attached = r.Detach(a2)
	assert.True(t, attached)
	assert.True(t, last, "that was user-a's last connection")
	assert.Equal(t, 0, r.ConnectionCount("user-a"))

	last, attached = r.Detach(b1)
	assert.True(t, attached)
	assert.True(t, last)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryIgnoresDuplicatesAndStrangers(t *testing.T) {
	r := NewRegistry()
	c := testClient("user-a", "Alice")

	assert.True(t, r.Attach(c))
	assert.False(t, r.Attach(c), "re-attaching the same connection is a no-op")
	assert.Equal(t, 1, r.ConnectionCount("user-a"))

	stranger := testClient("user-z", "Zed")
	last, attached := r.Detach(stranger)
	assert.False(t, attached, "detaching an unregistered connection is a no-op")
	assert.False(t, last)
	assert.Equal(t, 1, r.Len())
}
