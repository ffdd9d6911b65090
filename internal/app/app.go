// Package app runs one polling cycle of the clock: read inputs, update the
// state, sample the sensor, redraw and report.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sweeney/envclock/internal/clock"
	"github.com/sweeney/envclock/internal/contrast"
	"github.com/sweeney/envclock/internal/display"
	"github.com/sweeney/envclock/internal/gpio"
	"github.com/sweeney/envclock/internal/logic"
	"github.com/sweeney/envclock/internal/mqtt"
	"github.com/sweeney/envclock/internal/render"
	"github.com/sweeney/envclock/internal/sensor"
	"github.com/sweeney/envclock/internal/status"
)

// Console receives the debug line written after each redraw.
type Console interface {
	Contrast(level int) error
}

// Notifier is told when the tracker holds a new state.
type Notifier interface {
	Notify()
}

// Deps are the devices and sinks the loop drives. Publisher, Tracker,
// Console and Notifier are optional.
type Deps struct {
	Button   gpio.ButtonReader
	Encoder  *logic.Encoder
	Sensor   sensor.Reader
	Display  display.Sink
	Contrast contrast.Sink
	Clock    clock.Source

	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Console   Console
	Notifier  Notifier
}

// Options tune reporting. A zero PublishRate means unlimited.
type Options struct {
	Session     string
	PublishRate rate.Limit
	Burst       int
	Now         func() time.Time
}

// App owns the controller and is driven from a single goroutine.
type App struct {
	deps    Deps
	opts    Options
	ctrl    *logic.Controller
	button  logic.Button
	limiter *rate.Limiter

	publishPending bool
	notifyPending  bool

	// warn once per failure streak
	buttonFailing   bool
	contrastFailing bool
	displayFailing  bool
}

// New returns an App with boot defaults. It panics if a required
// dependency is missing.
func New(deps Deps, opts Options) *App {
	if deps.Button == nil || deps.Encoder == nil || deps.Sensor == nil ||
		deps.Display == nil || deps.Contrast == nil || deps.Clock == nil {
		panic("app: missing required dependency")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	limit := opts.PublishRate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &App{
		deps:    deps,
		opts:    opts,
		ctrl:    logic.NewController(),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// AttachEncoder creates an encoder seeded with the current line levels and
// feeds it every edge from src, timestamped by clk.
func AttachEncoder(src gpio.EncoderSource, clk clock.Source) (*logic.Encoder, error) {
	initial, err := src.Sample()
	if err != nil {
		return nil, fmt.Errorf("sample encoder: %w", err)
	}
	enc := logic.NewEncoder(initial)
	if err := src.Watch(func(sample uint8) {
		enc.Edge(sample, clk.Millis())
	}); err != nil {
		return nil, fmt.Errorf("watch encoder: %w", err)
	}
	return enc, nil
}

// SetContrast overrides the boot contrast level.
func (a *App) SetContrast(level int) {
	a.ctrl.SetContrast(level)
}

// State returns a copy of the current state.
func (a *App) State() logic.State {
	return a.ctrl.State()
}

// Cycle runs one pass of the main loop.
func (a *App) Cycle() {
	now := a.deps.Clock.Millis()

	a.applyContrast(a.ctrl.State().Contrast)

	low, err := a.deps.Button.Low()
	if err != nil {
		if !a.buttonFailing {
			log.Warn().Err(err).Msg("button read failed")
			a.buttonFailing = true
		}
		low = false
	} else {
		a.buttonFailing = false
	}
	pressed := a.button.Poll(low)
	delta := a.deps.Encoder.Drain()

	out := a.ctrl.Step(logic.Input{Now: now, Pressed: pressed, Delta: delta})

	s := a.ctrl.State()
	if out.ViewChanged {
		log.Info().Stringer("menu", s.Menu).Int32("discarded", delta).Msg("view changed")
		a.publishPending = true
	}
	if out.Adjusted {
		log.Debug().Stringer("menu", s.Menu).Int32("delta", delta).
			Int("contrast", s.Contrast).Stringer("time", s.Time).Msg("adjusted")
		a.publishPending = true
	}

	if out.SampleSensor {
		humidity := a.deps.Sensor.ReadHumidity()
		temperature := a.deps.Sensor.ReadTemperature()
		a.ctrl.SetReadings(temperature, humidity)
		log.Debug().Float32("temperature", temperature).Float32("humidity", humidity).Msg("sensor sampled")
		a.publishPending = true
	}

	if a.ctrl.Dirty() {
		a.redraw()
	}

	a.flush()
}

func (a *App) applyContrast(level int) {
	err := a.deps.Contrast.Set(uint8(level))
	if err != nil && !a.contrastFailing {
		log.Warn().Err(err).Int("level", level).Msg("contrast write failed")
	}
	a.contrastFailing = err != nil
}

// redraw renders the frame and clears the dirty flag. A failed write still
// clears it; the next tick redraws the whole frame anyway.
func (a *App) redraw() {
	s := a.ctrl.State()
	err := render.Frame(a.deps.Display, s)
	if err != nil && !a.displayFailing {
		log.Warn().Err(err).Stringer("menu", s.Menu).Msg("display write failed")
	}
	a.displayFailing = err != nil
	a.ctrl.MarkRendered()

	if a.deps.Console != nil {
		if err := a.deps.Console.Contrast(s.Contrast); err != nil {
			log.Debug().Err(err).Msg("console write failed")
		}
	}
	if a.deps.Tracker != nil {
		a.deps.Tracker.Update(a.ctrl.State())
		a.notifyPending = true
	}
}

// flush pushes the latest state to the websocket feed and the broker,
// no faster than the limiter allows. A denied push stays pending and goes
// out with a later cycle's state.
func (a *App) flush() {
	publish := a.publishPending && a.deps.Publisher != nil
	notify := a.notifyPending && a.deps.Notifier != nil
	if !publish && !notify {
		return
	}
	t := a.opts.Now()
	if !a.limiter.AllowN(t, 1) {
		return
	}

	if notify {
		a.deps.Notifier.Notify()
		a.notifyPending = false
	}
	if publish {
		err := a.deps.Publisher.PublishState(mqtt.StateEvent{
			Timestamp: t,
			Session:   a.opts.Session,
			State:     a.ctrl.State(),
		})
		if err != nil {
			// Don't crash on publish failure
			log.Warn().Err(err).Msg("state publish failed")
		}
		a.publishPending = false
	}
}
