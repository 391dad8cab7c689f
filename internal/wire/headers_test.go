package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders_CaseInsensitiveKeyOriginalCaseValue(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "text/plain")

	value, name, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "Content-Type", name)
	assert.Equal(t, "text/plain", value)
}

func TestHeaders_LastValueWinsOnDuplicateKeepsFirstCasing(t *testing.T) {
	h := NewHeaders()
	h.Set("X-Forwarded-For", "1.1.1.1")
	h.Set("x-forwarded-for", "2.2.2.2")

	value, name, ok := h.Get("X-FORWARDED-FOR")
	assert.True(t, ok)
	assert.Equal(t, "X-Forwarded-For", name)
	assert.Equal(t, "2.2.2.2", value)
	assert.Equal(t, 1, h.Len())
}

func TestHeaders_DelRemovesEntryAndOrder(t *testing.T) {
	h := NewHeaders()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Del("a")

	assert.False(t, h.Has("A"))
	assert.Equal(t, 1, h.Len())

	var seen []string
	h.Each(func(name, value string) { seen = append(seen, name) })
	assert.Equal(t, []string{"B"}, seen)
}

func TestHeaders_EachPreservesInsertionOrder(t *testing.T) {
	h := NewHeaders()
	h.Set("Host", "example.com")
	h.Set("Accept", "*/*")
	h.Set("Connection", "close")

	var order []string
	h.Each(func(name, value string) { order = append(order, name) })
	assert.Equal(t, []string{"Host", "Accept", "Connection"}, order)
}
