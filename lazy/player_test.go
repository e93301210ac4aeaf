package lazy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeMedia struct {
	calls   []string
	reject  bool
	playing bool
}

func (x *fakeMedia) Play() error {
	if x.reject {
		x.calls = append(x.calls, `play rejected`)
		return errors.New(`NotAllowedError`)
	}
	x.calls = append(x.calls, `play`)
	x.playing = true
	return nil
}

func (x *fakeMedia) Pause() {
	x.calls = append(x.calls, `pause`)
	x.playing = false
}

func (x *fakeMedia) SetMuted(muted bool) {
	if muted {
		x.calls = append(x.calls, `mute`)
	} else {
		x.calls = append(x.calls, `unmute`)
	}
}

func TestPlayers_autoplayThreshold(t *testing.T) {
	s, v, page := newTestScheduler(t)
	players := NewPlayers(s, PlayersConfig{})
	media := new(fakeMedia)
	p := players.New(media, page.element(140, 100))
	assert.True(t, p.Muted())
	assert.Equal(t, []string{`mute`}, media.calls)

	s.Start()
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())

	// 40% visible
	page.scrollTo(s, 80)
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())

	// 50% visible
	page.scrollTo(s, 90)
	v.Settle(100)
	assert.Equal(t, PlayerPlaying, p.State())

	page.scrollTo(s, 400)
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())
	assert.Equal(t, []string{`mute`, `play`, `pause`}, media.calls)
}

func TestPlayers_customThreshold(t *testing.T) {
	s, v, page := newTestScheduler(t)
	players := NewPlayers(s, PlayersConfig{AutoplayThreshold: 10})
	p := players.New(new(fakeMedia), page.element(195, 100))
	s.Start()
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())

	page.scrollTo(s, 100)
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())

	// 10% visible
	page.scrollTo(s, 105)
	v.Settle(100)
	assert.Equal(t, PlayerPlaying, p.State())
}

func TestPlayer_playRejected(t *testing.T) {
	s, v, page := newTestScheduler(t)
	players := NewPlayers(s, PlayersConfig{})
	media := &fakeMedia{reject: true}
	p := players.New(media, page.element(0, 100))
	s.Start()
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())
	assert.True(t, players.Active(p))

	// a user play is subject to the same policy, but takes control
	media.reject = false
	p.UserPlay()
	assert.Equal(t, PlayerPlaying, p.State())
	assert.True(t, p.UserInControl())
	assert.Equal(t, []string{`mute`, `play rejected`, `play`}, media.calls)
}

func TestPlayer_userInControl(t *testing.T) {
	s, v, page := newTestScheduler(t)
	players := NewPlayers(s, PlayersConfig{})
	media := new(fakeMedia)
	p := players.New(media, page.element(0, 100))
	s.Start()
	v.Settle(100)
	assert.Equal(t, PlayerPlaying, p.State())

	p.UserPause()
	assert.Equal(t, PlayerPaused, p.State())

	// neither leaving nor re-entering the viewport resumes it
	page.scrollTo(s, 1000)
	v.Settle(100)
	page.scrollTo(s, 0)
	v.Settle(100)
	assert.Equal(t, PlayerPaused, p.State())

	p.UserMute(false)
	assert.False(t, p.Muted())
	p.UserPlay()
	assert.Equal(t, PlayerPlaying, p.State())

	// nor does scrolling away pause it
	page.scrollTo(s, 1000)
	v.Settle(100)
	assert.Equal(t, PlayerPlaying, p.State())
	assert.Equal(t, []string{`mute`, `play`, `pause`, `unmute`, `play`}, media.calls)
}

func TestPlayer_endedReplay(t *testing.T) {
	s, v, page := newTestScheduler(t)
	players := NewPlayers(s, PlayersConfig{})
	media := new(fakeMedia)
	p := players.New(media, page.element(0, 100))

	p.Ended()
	assert.Equal(t, PlayerPaused, p.State(), `ignored unless playing`)

	s.Start()
	v.Settle(100)
	p.Ended()
	assert.Equal(t, PlayerEnded, p.State())

	// ended players are not restarted automatically
	page.scrollTo(s, 1000)
	v.Settle(100)
	page.scrollTo(s, 0)
	v.Settle(100)
	assert.Equal(t, PlayerEnded, p.State())
	p.Play()
	p.Pause()
	assert.Equal(t, PlayerEnded, p.State())

	p.UserPlay()
	assert.Equal(t, PlayerPlaying, p.State())
	assert.Equal(t, []string{`mute`, `play`, `play`}, media.calls)

	p.Replay()
	assert.Equal(t, PlayerPlaying, p.State())
}

func TestPlayerState_String(t *testing.T) {
	assert.Equal(t, `Paused`, PlayerPaused.String())
	assert.Equal(t, `Playing`, PlayerPlaying.String())
	assert.Equal(t, `Ended`, PlayerEnded.String())
	assert.Equal(t, `Unknown`, PlayerState(7).String())
}
