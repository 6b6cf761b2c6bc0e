// Package engine owns the weather state. Every command issues a request
// with a sequence number and only the latest issued request may change
// the published state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/angas/skyphase/location"
	"github.com/angas/skyphase/metrics"
	"github.com/angas/skyphase/types"
	"github.com/angas/skyphase/types/maybe"
	"github.com/angas/skyphase/wmo"
)

// ErrSuperseded is returned by a command whose result was dropped
// because a newer request had been issued in the meantime.
var ErrSuperseded = errors.New("superseded by a newer request")

type LocationResolver interface {
	ResolveInitial(ctx context.Context) (types.Place, error)
	ResolveByQuery(ctx context.Context, query string) (types.Place, error)
}

type Options struct {
	TempUnit types.TempUnit
	WindUnit types.WindUnit
	// Upper bound for one request, location resolution included, default: 30s
	Timeout time.Duration
	Now     func() time.Time
}

type resolveFunc func(ctx context.Context) (types.Place, error)

type Engine struct {
	logger   *slog.Logger
	resolver LocationResolver
	forecast types.ForecastProvider
	timeout  time.Duration
	now      func() time.Time

	// notifyMu serializes transitions so listeners see them in order.
	// Listeners must not call commands synchronously.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	state     State
	place     maybe.Maybe[types.Place] // last committed place, may be ahead of state.Place
	latest    uint64
	resolving uint64 // seq of the request whose place is not known yet, 0 if none
	listeners []func(State)

	OnCycle func(Cycle)
}

func New(resolver LocationResolver, forecast types.ForecastProvider, opts Options) *Engine {
	if opts.TempUnit != types.Fahrenheit {
		opts.TempUnit = types.Celsius
	}
	if opts.WindUnit != types.Mph {
		opts.WindUnit = types.Kmh
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		logger:   slog.Default().With("module", "engine"),
		resolver: resolver,
		forecast: forecast,
		timeout:  opts.Timeout,
		now:      opts.Now,
		state: State{
			Status:    StatusIdle,
			TempUnit:  opts.TempUnit,
			WindUnit:  opts.WindUnit,
			UpdatedAt: opts.Now(),
		},
	}
}

// Subscribe registers fn for every published state.
func (e *Engine) Subscribe(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Theme derives phase and gradient for the current snapshot at now.
func (e *Engine) Theme(now time.Time) Appearance {
	return AppearanceOf(e.State(), now)
}

// Start resolves the initial location and fetches its forecast.
func (e *Engine) Start(ctx context.Context) error {
	return e.run(ctx, TriggerStart, e.resolver.ResolveInitial)
}

// SubmitSearch returns location.ErrEmptyQuery without any state change for a blank query.
func (e *Engine) SubmitSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return location.ErrEmptyQuery
	}
	return e.run(ctx, TriggerSearch, func(ctx context.Context) (types.Place, error) {
		return e.resolver.ResolveByQuery(ctx, query)
	})
}

// Refresh re-fetches the last place, or resolves the initial location if there is none yet.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	known := e.place.IsValid()
	e.mu.Unlock()

	if !known {
		return e.run(ctx, TriggerRefresh, e.resolver.ResolveInitial)
	}
	return e.run(ctx, TriggerRefresh, nil)
}

// SetTempUnit re-fetches the last place with the new unit. Without a
// place the unit is only recorded, the location is never resolved here.
func (e *Engine) SetTempUnit(ctx context.Context, unit types.TempUnit) error {
	u, err := types.ParseTempUnit(string(unit))
	if err != nil {
		return err
	}
	return e.changeUnits(ctx, func(s *State) bool {
		if s.TempUnit == u {
			return false
		}
		s.TempUnit = u
		return true
	})
}

func (e *Engine) SetWindUnit(ctx context.Context, unit types.WindUnit) error {
	u, err := types.ParseWindUnit(string(unit))
	if err != nil {
		return err
	}
	return e.changeUnits(ctx, func(s *State) bool {
		if s.WindUnit == u {
			return false
		}
		s.WindUnit = u
		return true
	})
}

func (e *Engine) changeUnits(ctx context.Context, apply func(s *State) bool) error {
	var c Cycle
	issued := false
	e.update(func(s *State) bool {
		if !apply(s) {
			return false
		}
		// A pending location change picks up the unit when its place is
		// committed, issuing a request here would discard it.
		if e.place.IsValid() && e.resolving != e.latest {
			c = e.beginLocked(TriggerUnits)
			issued = true
		}
		return true
	})
	if !issued {
		return nil
	}
	return e.execute(ctx, c, nil)
}

func (e *Engine) run(ctx context.Context, trigger Trigger, resolve resolveFunc) error {
	var c Cycle
	e.update(func(s *State) bool {
		c = e.beginLocked(trigger)
		if resolve != nil {
			e.resolving = c.Seq
		}
		return true
	})
	return e.execute(ctx, c, resolve)
}

// beginLocked issues a new sequence number and enters Loading, keeping
// the previous snapshot. e.mu must be held.
func (e *Engine) beginLocked(trigger Trigger) Cycle {
	e.latest++
	e.state.Status = StatusLoading
	e.state.Loading = true
	e.state.Error = ErrorNone
	e.state.Message = ""
	e.state.Seq = e.latest

	return Cycle{
		Seq:      e.latest,
		Trigger:  trigger,
		Place:    e.place.ValueOrDefault(types.Place{}),
		TempUnit: e.state.TempUnit,
		WindUnit: e.state.WindUnit,
		Started:  e.now(),
		begun:    time.Now(),
	}
}

func (e *Engine) execute(ctx context.Context, c Cycle, resolve resolveFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if resolve != nil {
		place, err := resolve(ctx)
		if err != nil {
			return e.finish(c, maybe.None[types.WeatherSnapshot](), resolveErrorKind(err), err)
		}

		// The place is committed as soon as it is known, so a unit change
		// issued while the forecast is in flight fetches the right place.
		// Units are read here for the same reason.
		e.mu.Lock()
		current := c.Seq == e.latest
		if e.resolving == c.Seq {
			e.resolving = 0
		}
		if current {
			e.place = maybe.Some(place)
			c.TempUnit, c.WindUnit = e.state.TempUnit, e.state.WindUnit
		}
		e.mu.Unlock()

		c.Place = place
		if !current {
			return e.finish(c, maybe.None[types.WeatherSnapshot](), ErrorNone, nil)
		}
	}

	snap, err := e.forecast.Forecast(ctx, c.Place.Coordinates, c.TempUnit, c.WindUnit)
	if err != nil {
		return e.finish(c, maybe.None[types.WeatherSnapshot](), ErrorForecastUnavailable, err)
	}

	snap.LocationName = c.Place.Name
	if snap.Current.IsValid() {
		snap.Current = maybe.Some(wmo.Decorate(snap.Current.Value()))
	}
	return e.finish(c, maybe.Some(snap), ErrorNone, nil)
}

// finish applies the outcome of c if it is still the latest request.
func (e *Engine) finish(c Cycle, snap maybe.Maybe[types.WeatherSnapshot], kind ErrorKind, cause error) error {
	c.Duration = time.Since(c.begun)
	c.Error = kind
	c.Err = cause
	c.Outcome = StatusReady
	if kind != ErrorNone {
		c.Outcome = StatusFailed
	}

	applied := false
	e.update(func(s *State) bool {
		if e.resolving == c.Seq {
			e.resolving = 0
		}
		if c.Seq != e.latest {
			return false
		}
		applied = true
		s.Loading = false
		s.Place = e.place
		if kind == ErrorNone {
			s.Status = StatusReady
			s.Error = ErrorNone
			s.Message = ""
			s.Snapshot = snap
		} else {
			s.Status = StatusFailed
			s.Error = kind
			s.Message = kind.Message()
		}
		return true
	})
	c.Discarded = !applied

	e.record(c)

	if c.Discarded {
		return fmt.Errorf("request %d: %w", c.Seq, ErrSuperseded)
	}
	return cause
}

func (e *Engine) record(c Cycle) {
	logger := e.logger.With(
		slog.Uint64("seq", c.Seq),
		slog.String("trigger", string(c.Trigger)),
		slog.Duration("duration", c.Duration))

	switch {
	case c.Discarded:
		metrics.StaleResultsTotal.Inc()
		logger.Debug("discarding stale result", slog.String("place", c.Place.Name))
	case c.Outcome == StatusFailed:
		metrics.RecordFetchCycle(string(c.Trigger), string(c.Error), c.Duration)
		logger.Warn("weather update failed", slog.String("reason", string(c.Error)), slog.Any("error", c.Err))
	default:
		metrics.RecordFetchCycle(string(c.Trigger), string(c.Outcome), c.Duration)
		logger.Info("weather updated", slog.String("place", c.Place.Name),
			slog.String("tempUnit", string(c.TempUnit)), slog.String("windUnit", string(c.WindUnit)))
	}

	if e.OnCycle != nil {
		e.OnCycle(c)
	}
}

// update applies fn under the state lock and publishes the result when
// fn reports a change.
func (e *Engine) update(fn func(s *State) bool) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	changed := fn(&e.state)
	if changed {
		e.state.UpdatedAt = e.now()
	}
	s := e.state
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(s)
	}
}

func resolveErrorKind(err error) ErrorKind {
	if errors.Is(err, location.ErrNotFound) {
		return ErrorCityNotFound
	}
	return ErrorLocationUnavailable
}
