package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSource = Source{ID: "remote-1", Name: "phone"}

func dispatch(t *testing.T, h *harness, name, args string) error {
	t.Helper()
	return h.dispatcher(t).HandleEvent(context.Background(), testSource, name, mustArgs(t, args))
}

func assertCalls(t *testing.T, h *harness, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, h.rec.Calls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Play
// ============================================================================

func TestPlay_NowWithOffsetPublishesTimeline(t *testing.T) {
	h := newHarness()

	err := dispatch(t, h, EventPlay, `{"ItemIds":["42"],"StartPositionTicks":50000000}`)
	require.NoError(t, err)

	assertCalls(t, h, []string{"Load(42)", "Play(42,5)", "SendTimeline"})
}

func TestPlay_WithoutCurrentVideoIsAlwaysPlayNow(t *testing.T) {
	h := newHarness()

	err := dispatch(t, h, EventPlay, `{"ItemIds":["7"],"PlayCommand":"PlayLast"}`)
	require.NoError(t, err)

	assertCalls(t, h, []string{"Load(7)", "Play(7,nil)", "SendTimeline"})
}

func TestPlay_PreMediaRunsBeforePlayAndFailureIsTolerated(t *testing.T) {
	h := newHarness()
	c := h.collaborators()
	c.PreMedia = func(context.Context) error {
		h.rec.add("PreMedia")
		return errors.New("hook exploded")
	}
	reg, err := NewRegistry(NewCommands(c, discardLogger()).Bindings()...)
	require.NoError(t, err)

	err = NewDispatcher(reg, discardLogger()).HandleEvent(context.Background(), testSource, EventPlay, mustArgs(t, `{"ItemIds":["1"]}`))
	require.NoError(t, err)

	assertCalls(t, h, []string{"Load(1)", "PreMedia", "Play(1,nil)", "SendTimeline"})
}

func TestPlay_NothingPlayable(t *testing.T) {
	h := newHarness()
	h.loader.nothing = true

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["missing"]}`))
	assertCalls(t, h, []string{"Load(missing)"})
}

func TestPlay_LoaderErrorIsReturned(t *testing.T) {
	h := newHarness()
	h.loader.err = errors.New("server unreachable")

	err := dispatch(t, h, EventPlay, `{"ItemIds":["1"]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server unreachable")
	assertCalls(t, h, []string{"Load(1)"})
}

func TestPlay_MalformedStartPositionIsDropped(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["42"],"StartPositionTicks":"soon"}`))
	assertCalls(t, h, []string{"Load(42)", "Play(42,nil)", "SendTimeline"})
}

func TestPlay_FractionalStartPositionIsKept(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["42"],"StartPositionTicks":12345678.5}`))
	assertCalls(t, h, []string{"Load(42)", "Play(42,1.23456785)", "SendTimeline"})
}

func TestPlay_StreamIndexesReachTheVideo(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["42"],"AudioStreamIndex":"2","SubtitleStreamIndex":-1,"MediaSourceId":"ms9"}`))

	v := h.player.CurrentVideo()
	require.NotNil(t, v)
	require.NotNil(t, v.AudioIndex)
	require.NotNil(t, v.SubtitleIndex)
	assert.Equal(t, 2, *v.AudioIndex)
	assert.Equal(t, -1, *v.SubtitleIndex)
	assert.Equal(t, "ms9", v.MediaSourceID)
}

func TestPlay_NextAndLastEditTheQueue(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["1","2"]}`))
	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["9"],"PlayCommand":"PlayNext"}`))
	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["7"],"PlayCommand":"PlayLast"}`))

	assert.Equal(t, []string{"1", "9", "2", "7"}, h.player.CurrentVideo().Playlist.IDs())
	assertCalls(t, h, []string{
		"Load(1,2)", "Play(1,nil)", "SendTimeline",
		"UpdateVisibility",
		"UpdateVisibility",
	})
}

func TestPlay_UnknownPlayCommandWithCurrentVideoIsIgnored(t *testing.T) {
	h := newHarness()
	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["1"]}`))

	require.NoError(t, dispatch(t, h, EventPlay, `{"ItemIds":["2"],"PlayCommand":"PlayShuffle"}`))
	assertCalls(t, h, []string{"Load(1)", "Play(1,nil)", "SendTimeline"})
}

// ============================================================================
// GeneralCommand
// ============================================================================

func TestGeneralCommand_AudioStreamIndexFromString(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"SetAudioStreamIndex","Arguments":{"Index":"3"}}`))
	assertCalls(t, h, []string{"SetStreams(3,nil)"})
}

func TestGeneralCommand_SubtitleStreamIndex(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"SetSubtitleStreamIndex","Arguments":{"Index":-1}}`))
	assertCalls(t, h, []string{"SetStreams(nil,-1)"})
}

func TestGeneralCommand_MalformedStreamIndexIsSkipped(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"SetAudioStreamIndex","Arguments":{"Index":"three"}}`))
	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"SetAudioStreamIndex"}`))
	assertCalls(t, h, nil)
}

func TestGeneralCommand_SetVolume(t *testing.T) {
	tests := []struct {
		name    string
		current int
		args    string
		want    []string
	}{
		{"changed", 50, `{"Volume":30}`, []string{"Volume", "SetVolume(30)"}},
		{"string value", 50, `{"Volume":"30"}`, []string{"Volume", "SetVolume(30)"}},
		{"unchanged", 30, `{"Volume":30}`, []string{"Volume"}},
		{"missing", 30, `{}`, nil},
		{"malformed", 30, `{"Volume":"loud"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.player.volume = tt.current

			err := dispatch(t, h, EventGeneralCommand, `{"Name":"SetVolume","Arguments":`+tt.args+`}`)
			require.NoError(t, err)
			assertCalls(t, h, tt.want)
		})
	}
}

func TestGeneralCommand_RepeatedVolumeSetsOnce(t *testing.T) {
	h := newHarness()
	h.player.volume = 50

	for i := 0; i < 2; i++ {
		require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"SetVolume","Arguments":{"Volume":30}}`))
	}
	assertCalls(t, h, []string{"Volume", "SetVolume(30)", "Volume"})
}

func TestGeneralCommand_SetVolumeReadFailure(t *testing.T) {
	h := newHarness()
	h.player.volumeErr = errors.New("mpv gone")

	err := dispatch(t, h, EventGeneralCommand, `{"Name":"SetVolume","Arguments":{"Volume":10}}`)
	require.Error(t, err)
	assertCalls(t, h, []string{"Volume"})
}

func TestGeneralCommand_NamelessTogglesFullscreen(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Arguments":{}}`))
	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":null}`))
	assertCalls(t, h, []string{"ToggleFullscreen", "ToggleFullscreen"})
}

func TestGeneralCommand_NonStringNameIsIgnored(t *testing.T) {
	h := newHarness()

	for _, args := range []string{`{"Name":true}`, `{"Name":{}}`, `{"Name":{"x":1}}`, `{"Name":["MoveUp"]}`} {
		require.NoError(t, dispatch(t, h, EventGeneralCommand, args), args)
	}
	assertCalls(t, h, nil)
}

func TestGeneralCommand_SimpleCommands(t *testing.T) {
	tests := []struct {
		args string
		want []string
	}{
		{`{"Name":"ToggleFullscreen"}`, []string{"ToggleFullscreen"}},
		{`{"Name":"TakeScreenshot"}`, []string{"Screenshot"}},
		{`{"Name":"Mute"}`, []string{"SetMute(true)"}},
		{`{"Name":"Unmute"}`, []string{"SetMute(false)"}},
		{`{"Name":"GoToSettings"}`, []string{"Menu.Show"}},
		{`{"Name":"SendString","Arguments":{"String":"hello"}}`, []string{"Type(hello)"}},
		{`{"Name":"DisplayMessage","Arguments":{"Header":"Hi","Text":"there"}}`, []string{"Notify(Hi|there|mpvshim)"}},
		{`{"Name":"DisplayMessage","Arguments":{"Text":"only text"}}`, []string{"Notify(|only text|mpvshim)"}},
		{`{"Name":"DisplayContent","Arguments":{"ItemId":"55"}}`, []string{"DelayIdle", "DisplayContent(remote-1,55)"}},
		{`{"Name":"SetRepeatMode"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, dispatch(t, h, EventGeneralCommand, tt.args))
			assertCalls(t, h, tt.want)
		})
	}
}

func TestGeneralCommand_DisplayContentWithoutMirror(t *testing.T) {
	h := newHarness()
	c := h.collaborators()
	c.Mirror = nil

	err := NewCommands(c, discardLogger()).handleGeneralCommand(context.Background(), testSource, Event{
		Name: EventGeneralCommand,
		Args: mustArgs(t, `{"Name":"DisplayContent","Arguments":{"ItemId":"55"}}`),
	})
	require.NoError(t, err)
	assertCalls(t, h, []string{"DelayIdle"})
}

// ============================================================================
// Navigation
// ============================================================================

func TestNavigation_MenuShownUsesMenuAction(t *testing.T) {
	h := newHarness()
	h.menu.shown = true

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"MoveUp"}`))
	assertCalls(t, h, []string{"Menu.Action(up)"})
}

func TestNavigation_MenuShownRoutesEveryMenuCommand(t *testing.T) {
	for nav, action := range navMenuActions {
		t.Run(string(nav), func(t *testing.T) {
			h := newHarness()
			h.menu.shown = true

			require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"`+string(nav)+`"}`))
			assertCalls(t, h, []string{"Menu.Action(" + string(action) + ")"})
		})
	}
	assert.Len(t, navMenuActions, 7)
}

func TestNavigation_MenuHiddenTapsKey(t *testing.T) {
	h := newHarness()

	require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"MoveUp"}`))
	assertCalls(t, h, []string{"Press(Up)", "Release(Up)"})
}

func TestNavigation_CommandsWithoutMenuActionAlwaysTapKeys(t *testing.T) {
	for _, tt := range []struct {
		name string
		key  string
	}{
		{"ToggleContextMenu", "Menu"},
		{"GoToSearch", "XF86Search"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.menu.shown = true

			require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"`+tt.name+`"}`))
			assertCalls(t, h, []string{"Press(" + tt.key + ")", "Release(" + tt.key + ")"})
		})
	}
}

func TestNavigation_EveryCommandRoutes(t *testing.T) {
	for _, nav := range navCommands {
		t.Run(string(nav), func(t *testing.T) {
			h := newHarness()
			require.NoError(t, dispatch(t, h, EventGeneralCommand, `{"Name":"`+string(nav)+`"}`))

			key := navKeys[nav]
			assertCalls(t, h, []string{"Press(" + key.Name + ")", "Release(" + key.Name + ")"})
		})
	}
}

func TestNavigation_ReleaseRunsWhenPressFails(t *testing.T) {
	h := newHarness()
	h.keyboard.pressErr = errors.New("no display")

	err := dispatch(t, h, EventGeneralCommand, `{"Name":"Select"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, h.keyboard.pressErr)
	assertCalls(t, h, []string{"Press(Return)", "Release(Return)"})
}

func TestNavigation_ReleaseErrorIsReported(t *testing.T) {
	h := newHarness()
	h.keyboard.releaseErr = errors.New("stuck key")

	err := dispatch(t, h, EventGeneralCommand, `{"Name":"Back"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, h.keyboard.releaseErr)
	assertCalls(t, h, []string{"Press(Escape)", "Release(Escape)"})
}

// ============================================================================
// Playstate / PlayPause
// ============================================================================

func TestPlaystate_Commands(t *testing.T) {
	tests := []struct {
		args string
		want []string
	}{
		{`{"Command":"PlayPause"}`, []string{"TogglePause"}},
		{`{"Command":"PreviousTrack"}`, []string{"PlayPrev"}},
		{`{"Command":"NextTrack"}`, []string{"PlayNext"}},
		{`{"Command":"Stop"}`, []string{"Stop"}},
		{`{"Command":"Seek","SeekPositionTicks":100000000}`, []string{"Seek(10)"}},
		{`{"Command":"Seek","SeekPositionTicks":"15000000"}`, []string{"Seek(1.5)"}},
		{`{"Command":"Seek","SeekPositionTicks":15000000.5}`, []string{"Seek(1.50000005)"}},
		{`{"Command":"Seek"}`, nil},
		{`{"Command":"Rewind"}`, nil},
		{`{}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, dispatch(t, h, EventPlaystate, tt.args))
			assertCalls(t, h, tt.want)
		})
	}
}

func TestPlayPause_AlwaysSendsTimeline(t *testing.T) {
	h := newHarness()
	h.player.pauseErr = errors.New("not playing")

	err := dispatch(t, h, EventPlayPause, `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, h.player.pauseErr)
	assertCalls(t, h, []string{"TogglePause", "SendTimeline"})
}

func TestPlayPause_JoinsBothErrors(t *testing.T) {
	h := newHarness()
	h.player.pauseErr = errors.New("not playing")
	h.timeline.sendErr = errors.New("queue closed")

	err := dispatch(t, h, EventPlayPause, `{}`)
	assert.ErrorIs(t, err, h.player.pauseErr)
	assert.ErrorIs(t, err, h.timeline.sendErr)
}
