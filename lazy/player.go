package lazy

import (
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
)

// DefaultAutoplayThreshold is the percentage of a player's height that must
// be visible before it autoplays.
const DefaultAutoplayThreshold = 50

// PlayerState is the playback state of a [Player].
type PlayerState uint8

const (
	PlayerPaused PlayerState = iota
	PlayerPlaying
	PlayerEnded
)

// String returns a human-readable representation of the state.
func (s PlayerState) String() string {
	switch s {
	case PlayerPaused:
		return "Paused"
	case PlayerPlaying:
		return "Playing"
	case PlayerEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Media is the playback surface controlled by a [Player].
type Media interface {
	Play() error
	Pause()
	SetMuted(muted bool)
}

// PlayersConfig models the configuration for NewPlayers.
type PlayersConfig struct {
	// Logger is optional.
	Logger *logiface.Logger[logiface.Event]

	// AutoplayThreshold is the percentage, in (0, 100], of a player that
	// must be inside the viewport for it to autoplay. It is converted to the
	// negative range -AutoplayThreshold/100.
	// Defaults to DefaultAutoplayThreshold, if 0.
	AutoplayThreshold float64
}

// Players is the registry of ambient video players. Players autoplay,
// muted, while mostly visible, and pause when scrolled away, until the user
// takes control of them.
type Players struct {
	*Activator[*Player]
	cfg PlayersConfig
}

// NewPlayers registers a new player registry with sched.
func NewPlayers(sched *viewport.Scheduler, cfg PlayersConfig) *Players {
	if cfg.AutoplayThreshold == 0 {
		cfg.AutoplayThreshold = DefaultAutoplayThreshold
	}
	x := &Players{cfg: cfg}
	x.Activator = NewActivator(sched, ActivatorConfig[*Player]{
		Activate:   (*Player).Play,
		Deactivate: (*Player).Pause,
		Skip:       (*Player).UserInControl,
		Logger:     cfg.Logger,
		Kind:       `player`,
		Range:      -cfg.AutoplayThreshold / 100,
	})
	return x
}

// New creates a paused, muted player for media, positioned by element, and
// registers it.
func (x *Players) New(media Media, element Element) *Player {
	media.SetMuted(true)
	p := &Player{media: media, element: element, logger: x.cfg.Logger, muted: true}
	x.Add(p)
	return p
}

// Player is an ambient video player.
type Player struct {
	media         Media
	element       Element
	logger        *logiface.Logger[logiface.Event]
	state         PlayerState
	muted         bool
	userInControl bool
}

// Rect implements [Handle].
func (x *Player) Rect() viewport.Rect { return x.element.Rect() }

// State returns the playback state.
func (x *Player) State() PlayerState { return x.state }

// Muted reports whether the media is muted.
func (x *Player) Muted() bool { return x.muted }

// UserInControl reports whether the user has interacted with the player,
// which excludes it from automatic play and pause.
func (x *Player) UserInControl() bool { return x.userInControl }

// Play starts playback, unless it has ended. A rejected play, e.g. due to
// an autoplay policy, leaves the player paused.
func (x *Player) Play() {
	if x.state != PlayerPaused {
		return
	}
	if err := x.media.Play(); err != nil {
		x.logger.Debug().
			Err(err).
			Log(`lazy: player play rejected`)
		return
	}
	x.state = PlayerPlaying
}

// Pause pauses playback, if playing.
func (x *Player) Pause() {
	if x.state != PlayerPlaying {
		return
	}
	x.media.Pause()
	x.state = PlayerPaused
}

// Ended records the end of playback, reported by the media. It is ignored
// unless playing.
func (x *Player) Ended() {
	if x.state == PlayerPlaying {
		x.state = PlayerEnded
	}
}

// Replay restarts playback, after it has ended.
func (x *Player) Replay() {
	if x.state != PlayerEnded {
		return
	}
	x.state = PlayerPaused
	x.Play()
}

// UserPlay is a play initiated by the user. It takes control of the player.
func (x *Player) UserPlay() {
	x.userInControl = true
	if x.state == PlayerEnded {
		x.Replay()
		return
	}
	x.Play()
}

// UserPause is a pause initiated by the user. It takes control of the
// player.
func (x *Player) UserPause() {
	x.userInControl = true
	x.Pause()
}

// UserMute sets the muted state, on behalf of the user. It takes control of
// the player.
func (x *Player) UserMute(muted bool) {
	x.userInControl = true
	x.muted = muted
	x.media.SetMuted(muted)
}
