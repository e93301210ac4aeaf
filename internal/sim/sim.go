// Package sim replays scripted page interactions against a Scheduler and
// its lazy resource registries, recording every resource transition.
package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/go-viewport/lazy"
	"github.com/joeycumines/logiface"
)

// Hosts.
const (
	HostVirtual = `virtual`
	HostLoop    = `loop`
)

// Budgets.
const (
	BudgetAuto  = `auto`
	BudgetTime  = `time`
	BudgetTicks = `ticks`
)

// DefaultMaxFrames bounds each step, on the virtual host.
const DefaultMaxFrames = 10000

// DefaultStepTimeout bounds each step, on the loop host.
const DefaultStepTimeout = 10 * time.Second

var errAutoplayBlocked = errors.New(`autoplay blocked`)

// Options models optional configuration for Run.
type Options struct {
	Logger *logiface.Logger[logiface.Event]

	// Host is one of HostVirtual (default) or HostLoop.
	Host string

	// Budget is one of BudgetAuto (default), BudgetTime or BudgetTicks.
	Budget string

	// MaxFrames defaults to DefaultMaxFrames, if 0.
	MaxFrames int

	// StepTimeout defaults to DefaultStepTimeout, if 0.
	StepTimeout time.Duration
}

// Result is the outcome of a Run.
type Result struct {
	// Trace holds one line per resource transition, in order.
	Trace []string

	Stats viewport.Stats
}

// Bytes formats the trace, one line per transition.
func (x *Result) Bytes() []byte {
	var b bytes.Buffer
	for _, line := range x.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Run replays scenario. On the virtual host the trace is deterministic. On
// the loop host, completions of concurrent fetches may be reordered.
func Run(ctx context.Context, scenario *Scenario, opts *Options) (*Result, error) {
	if opts == nil {
		opts = new(Options)
	}
	maxFrames := opts.MaxFrames
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	stepTimeout := opts.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}

	budget, err := budgetOption(opts.Budget)
	if err != nil {
		return nil, err
	}

	d, err := newDriver(opts.Host, opts.Logger, maxFrames)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := d.close(); err != nil {
			opts.Logger.Warning().Err(err).Log(`sim: failed to close host`)
		}
	}()

	r := &runner{
		scenario: scenario,
		logger:   opts.Logger,
		page:     NewPage(scenario.Viewport),
		remove:   make(map[string]func() bool),
		players:  make(map[string]*lazy.Player),
		images:   make(map[*lazy.Image]string),
		fails:    make(map[string]bool),
	}

	schedOpts := []viewport.Option{
		viewport.WithClock(d.clock()),
		viewport.WithLogger(opts.Logger),
		viewport.WithPanicHandler(func(err error) {
			if r.err == nil {
				r.err = err
			}
		}),
	}
	if budget != nil {
		schedOpts = append(schedOpts, budget)
	}

	runStep := func(name string, fn func(), wait time.Duration) error {
		ctx, cancel := context.WithTimeout(ctx, stepTimeout)
		defer cancel()
		if err := d.do(ctx, func() {
			r.stepName = name
			fn()
		}); err != nil {
			return err
		}
		if wait > 0 {
			if err := d.wait(ctx, wait); err != nil {
				return err
			}
		}
		if err := d.settle(ctx, r.quiet); err != nil {
			return fmt.Errorf("sim: step %d (%s): %w", r.step, name, err)
		}
		return nil
	}

	if err := runStep(`start`, func() {
		if err = r.setup(d, schedOpts); err == nil {
			r.sched.Start()
		}
	}, 0); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		r.step = i + 1
		if err := runStep(step.Name(), func() { r.apply(step) }, time.Duration(step.WaitMS)*time.Millisecond); err != nil {
			return nil, err
		}
	}

	result := new(Result)
	if err := d.do(ctx, func() {
		result.Trace = r.trace
		result.Stats = r.sched.Stats()
		err = r.err
	}); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sim: task failed: %w", err)
	}

	if b := opts.Logger.Info(); b.Enabled() {
		b.Str(`scenario`, scenario.Name).
			Int(`steps`, len(scenario.Steps)).
			Int(`transitions`, len(result.Trace)).
			Uint64(`episodes`, result.Stats.Episodes).
			Uint64(`yields`, result.Stats.Yields).
			Uint64(`tasks`, result.Stats.TasksRun).
			Int(`max_pending`, result.Stats.MaxPending).
			Log(`scenario complete`)
	}

	return result, nil
}

func budgetOption(name string) (viewport.Option, error) {
	switch name {
	case ``, BudgetAuto:
		return nil, nil
	case BudgetTime:
		return viewport.WithTimeBudget(viewport.DefaultTimeBudget), nil
	case BudgetTicks:
		return viewport.WithTickBudget(viewport.DefaultTickBudget), nil
	default:
		return nil, fmt.Errorf("sim: unknown budget %q", name)
	}
}

// runner holds the simulated page, all state is accessed on the scheduler
// goroutine
type runner struct {
	scenario *Scenario
	logger   *logiface.Logger[logiface.Event]
	page     *Page
	sched    *viewport.Scheduler
	dispatch func(event viewport.Event)
	remove   map[string]func() bool
	players  map[string]*lazy.Player
	images   map[*lazy.Image]string
	fails    map[string]bool
	err      error
	stepName string
	trace    []string
	step     int
	inflight int
}

func (r *runner) setup(d driver, opts []viewport.Option) error {
	sched, err := viewport.New(d.host(), r.page, opts...)
	if err != nil {
		return err
	}
	r.sched = sched
	r.dispatch = d.events(sched.Window())

	fetcher, dispatch := d.fetcher(time.Duration(r.scenario.FetchLatencyMS)*time.Millisecond, func(src string) bool {
		return r.fails[src]
	})
	if dispatch != nil {
		// completions are counted once back on the scheduler goroutine
		inner, submit := fetcher, dispatch
		fetcher = lazy.FetcherFunc(func(src string, done func(err error)) {
			r.inflight++
			inner.Fetch(src, done)
		})
		dispatch = func(fn func()) error {
			return submit(func() {
				r.inflight--
				fn()
			})
		}
	}

	images := lazy.NewImages(sched, lazy.ImagesConfig{
		Fetcher:  fetcher,
		Dispatch: dispatch,
		Logger:   r.logger,
		OnChange: func(img *lazy.Image, from, to lazy.ImageState) {
			r.record(KindImage, r.images[img], fmt.Sprintf(`%s -> %s`, from, to))
		},
	})
	players := lazy.NewPlayers(sched, lazy.PlayersConfig{
		Logger:            r.logger,
		AutoplayThreshold: r.scenario.AutoplayThreshold,
	})
	effects := lazy.NewEffects(sched, &lazy.EffectsConfig{Logger: r.logger})

	for _, e := range r.scenario.Elements {
		element := r.page.Element(e.Rect)
		switch e.Kind {
		case KindImage:
			src := e.Src
			if src == `` {
				src = e.ID
			}
			if e.FetchFails {
				r.fails[src] = true
			}
			r.addImage(images, e.ID, src, element)
		case KindPlayer:
			m := &media{r: r, id: e.ID, blocked: e.AutoplayBlocked, muted: true}
			p := players.New(m, element)
			r.players[e.ID] = p
			r.remove[e.ID] = func() bool { return players.Remove(p) }
		case KindEffect:
			id := e.ID
			fx := effects.New(element, func(enabled bool) {
				if enabled {
					r.record(KindEffect, id, `enabled`)
				} else {
					r.record(KindEffect, id, `disabled`)
				}
			})
			r.remove[e.ID] = func() bool { return effects.Remove(fx) }
		}
	}

	return nil
}

func (r *runner) addImage(images *lazy.Images, id, src string, element lazy.Element) {
	img := images.New(src, element)
	r.images[img] = id
	r.remove[id] = func() bool { return images.Remove(img) }
}

func (r *runner) apply(step *Step) {
	switch {
	case step.Scroll != nil:
		r.page.ScrollTo(*step.Scroll)
		r.dispatch(viewport.Event{Type: viewport.EventScroll, Detail: *step.Scroll})
	case step.Resize != nil:
		r.page.Resize(*step.Resize)
		r.dispatch(viewport.Event{Type: viewport.EventResize, Detail: *step.Resize})
	case step.Rotate != nil:
		r.page.Resize(*step.Rotate)
		r.dispatch(viewport.Event{Type: viewport.EventOrientationChange, Detail: *step.Rotate})
	case step.User != nil:
		p := r.players[step.User.ID]
		switch step.User.Action {
		case ActionPlay:
			p.UserPlay()
		case ActionPause:
			p.UserPause()
		case ActionMute:
			p.UserMute(true)
		case ActionUnmute:
			p.UserMute(false)
		}
	case step.Ended != ``:
		p := r.players[step.Ended]
		p.Ended()
		if p.State() == lazy.PlayerEnded {
			r.record(KindPlayer, step.Ended, `ended`)
		}
	case step.Remove != ``:
		if r.remove[step.Remove]() {
			r.record(r.kindOf(step.Remove), step.Remove, `removed`)
		}
	}
}

func (r *runner) kindOf(id string) string {
	for _, e := range r.scenario.Elements {
		if e.ID == id {
			return e.Kind
		}
	}
	return ``
}

// quiet reports whether the page has nothing left to do
func (r *runner) quiet() bool {
	if r.sched == nil {
		return true
	}
	stats := r.sched.Stats()
	return r.sched.State() == viewport.StateIdle &&
		stats.Pending == 0 &&
		!stats.ResizePending &&
		r.inflight == 0
}

func (r *runner) record(kind, id, event string) {
	r.trace = append(r.trace, fmt.Sprintf(`step %d (%s): %s %s: %s`, r.step, r.stepName, kind, id, event))
	if b := r.logger.Debug(); b.Enabled() {
		b.Int(`step`, r.step).
			Str(`kind`, kind).
			Str(`id`, id).
			Str(`event`, event).
			Log(`transition`)
	}
}

// media is a simulated video element
type media struct {
	r       *runner
	id      string
	blocked bool
	muted   bool
}

func (x *media) Play() error {
	if x.blocked {
		x.r.record(KindPlayer, x.id, `play rejected`)
		return errAutoplayBlocked
	}
	x.r.record(KindPlayer, x.id, `play`)
	return nil
}

func (x *media) Pause() {
	x.r.record(KindPlayer, x.id, `pause`)
}

func (x *media) SetMuted(muted bool) {
	if x.muted == muted {
		return
	}
	x.muted = muted
	if muted {
		x.r.record(KindPlayer, x.id, `muted`)
	} else {
		x.r.record(KindPlayer, x.id, `unmuted`)
	}
}
