package feedspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseKeysPreserveOrder(t *testing.T) {
	resp := newResponse([]string{"c", "a", "b"})
	resp.set("a", true)
	resp.set("b", true)
	resp.set("c", true)

	assert.Equal(t, []string{"c", "a", "b"}, resp.Keys())
	assert.Equal(t, 3, resp.Len())
}

func TestResponseGetUnwrapsValueOrError(t *testing.T) {
	resp := newResponse([]string{"ok", "bad"})
	resp.set("ok", 7)
	resp.fail("bad", newError(ErrProvider, "fetch", "bad", "boom"))

	value, err := resp.Get("ok")
	require.NoError(t, err)
	assert.Equal(t, 7, value)

	_, err = resp.Get("bad")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrProvider))

	_, err = resp.Get("missing")
	assert.True(t, IsKind(err, ErrNotFound))
}

func TestResponseTypedUnwraps(t *testing.T) {
	events := []Event{NewEventAt("a", 1)}
	page := PageResult{Events: events, Total: 10}

	resp := newResponse([]string{"1", "2", "3", "4", "5"})
	resp.set("1", true)
	resp.set("2", 42)
	resp.set("3", 1700000000.5)
	resp.set("4", events)
	resp.set("5", page)

	b, err := resp.Bool("1")
	require.NoError(t, err)
	assert.True(t, b)

	n, err := resp.Int("2")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	f, err := resp.Float("3")
	require.NoError(t, err)
	assert.Equal(t, 1700000000.5, f)

	got, err := resp.Events("4")
	require.NoError(t, err)
	assert.Equal(t, events, got)

	gotPage, err := resp.Page("5")
	require.NoError(t, err)
	assert.Equal(t, page, gotPage)

	// Wrong-type unwraps report the mismatch instead of panicking.
	_, err = resp.Int("1")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrProvider))
}

func TestResponseHasErrors(t *testing.T) {
	resp := newResponse([]string{"a", "b"})
	resp.set("a", true)
	assert.False(t, resp.HasErrors())

	resp.fail("b", newError(ErrTransport, "store", "b", "connection reset"))
	assert.True(t, resp.HasErrors())
}

func TestResponseEachVisitsInputOrder(t *testing.T) {
	resp := newResponse([]string{"z", "a"})
	resp.set("z", 1)
	resp.fail("a", newError(ErrProvider, "fetch", "a", "boom"))

	var visited []string
	resp.Each(func(userID string, value interface{}, err error) {
		visited = append(visited, userID)
		if userID == "a" {
			assert.Error(t, err)
		} else {
			assert.Equal(t, 1, value)
		}
	})
	assert.Equal(t, []string{"z", "a"}, visited)
}

func TestResponseEqual(t *testing.T) {
	build := func() *Response {
		resp := newResponse([]string{"1", "2"})
		resp.set("1", []Event{NewEventAt("a", 1)})
		resp.fail("2", newError(ErrProvider, "fetch", "2", "boom"))
		return resp
	}

	assert.True(t, build().Equal(build()))
	assert.False(t, build().Equal(nil))

	different := newResponse([]string{"1", "2"})
	different.set("1", []Event{NewEventAt("a", 2)})
	different.fail("2", newError(ErrProvider, "fetch", "2", "boom"))
	assert.False(t, build().Equal(different))

	reordered := newResponse([]string{"2", "1"})
	reordered.set("1", []Event{NewEventAt("a", 1)})
	reordered.fail("2", newError(ErrProvider, "fetch", "2", "boom"))
	assert.False(t, build().Equal(reordered))
}
