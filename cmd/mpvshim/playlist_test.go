package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaylist_NextPrevStopAtEnds(t *testing.T) {
	pl := NewPlaylist([]string{"a", "b"}, "u1", defaultURLTemplate)

	assert.Equal(t, "a", pl.Current().ItemID)
	assert.Nil(t, pl.Prev())

	next := pl.Next()
	require.NotNil(t, next)
	assert.Equal(t, "b", next.ItemID)
	assert.Same(t, pl, next.Playlist)
	assert.Nil(t, pl.Next())

	idx, n := pl.Position()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, n)

	assert.Equal(t, "a", pl.Prev().ItemID)
}

func TestPlaylist_InsertItems(t *testing.T) {
	pl := NewPlaylist([]string{"a", "b", "c"}, "", defaultURLTemplate)
	pl.Next() // current = b

	require.NoError(t, pl.InsertItems([]string{"x", "y"}, false))
	assert.Equal(t, []string{"a", "b", "x", "y", "c"}, pl.IDs())

	require.NoError(t, pl.InsertItems([]string{"z"}, true))
	assert.Equal(t, []string{"a", "b", "x", "y", "c", "z"}, pl.IDs())

	require.NoError(t, pl.InsertItems(nil, true))
	assert.Len(t, pl.IDs(), 6)

	assert.Equal(t, "x", pl.Next().ItemID)
}

func TestPlaylist_IDsIsACopy(t *testing.T) {
	ids := []string{"a"}
	pl := NewPlaylist(ids, "", defaultURLTemplate)
	ids[0] = "mutated"

	got := pl.IDs()
	got[0] = "also mutated"
	assert.Equal(t, []string{"a"}, pl.IDs())
}

func TestExpandURLTemplate(t *testing.T) {
	tests := []struct {
		name, template, item, source, user, want string
	}{
		{"plain path", "{item_id}", "/media/a b.mkv", "", "", "/media/a b.mkv"},
		{"url escapes", "http://srv/Videos/{item_id}/stream?MediaSourceId={media_source_id}", "a b", "", "", "http://srv/Videos/a%20b/stream?MediaSourceId=a%20b"},
		{"media source", "http://srv/{media_source_id}?u={user_id}", "i1", "ms1", "u1", "http://srv/ms1?u=u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandURLTemplate(tt.template, tt.item, tt.source, tt.user))
		})
	}
}

func TestTemplateLoader_Load(t *testing.T) {
	l := newTemplateLoader("http://srv/{item_id}")
	audio := 1

	v, err := l.Load(Source{}, PlayRequest{ItemIDs: []string{"9", "10"}, AudioIndex: &audio, UserID: "u"})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "http://srv/9", v.URL)
	assert.Equal(t, &audio, v.AudioIndex)
	assert.Equal(t, []string{"9", "10"}, v.Playlist.IDs())
	assert.Equal(t, "http://srv/10", v.Playlist.Next().URL)

	v, err = l.Load(Source{}, PlayRequest{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPlayRequest_Offset(t *testing.T) {
	assert.Nil(t, PlayRequest{}.Offset())

	ticks := 50_000_000.0
	off := PlayRequest{StartTicks: &ticks}.Offset()
	require.NotNil(t, off)
	assert.Equal(t, 5.0, *off)

	frac := 12345678.5
	assert.InDelta(t, 1.23456785, *PlayRequest{StartTicks: &frac}.Offset(), 1e-12)
}
