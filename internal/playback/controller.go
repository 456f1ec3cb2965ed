package playback

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// State names one phase of the playback lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// transitions is the playback state machine: idle → loading → ready ⇄
// playing ⇄ paused → ended. Ended goes back to ready only through an
// explicit reset or a fresh seek.
var transitions = map[State][]State{
	StateIdle:    {StateLoading},
	StateLoading: {StateReady},
	StateReady:   {StatePlaying},
	StatePlaying: {StatePaused, StateEnded},
	StatePaused:  {StatePlaying, StateEnded},
	StateEnded:   {StateReady},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Player is the underlying media element. The controller delegates commands
// to it and mirrors its lifecycle events reactively.
type Player interface {
	Play() error
	Pause()
	SetRate(rate float64)
	Seek(seconds float64)
}

// Notifier surfaces transient user-visible messages (blocked autoplay, rate
// changes, media errors).
type Notifier interface {
	Notify(message string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Status is a snapshot of the controller's observable state.
type Status struct {
	State       State   `json:"state"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Rate        float64 `json:"rate"`
	IsPlaying   bool    `json:"isPlaying"`
}

// Controller owns a single media element's playback state. State fields are
// updated from the element's events, never polled. It signals end-of-content
// to subscribers after a short UX delay.
type Controller struct {
	player      Player
	notifier    Notifier
	revealDelay time.Duration
	after       func(time.Duration, func())

	mu          sync.Mutex
	state       State
	currentTime float64
	duration    float64
	rate        float64
	playing     bool
	subscribers map[chan struct{}]struct{}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRevealDelay sets the UX buffer between the ended event and the
// content-finished signal.
func WithRevealDelay(d time.Duration) Option {
	return func(c *Controller) { c.revealDelay = d }
}

// WithAfterFunc swaps the deferred scheduler, for deterministic tests.
func WithAfterFunc(after func(time.Duration, func())) Option {
	return func(c *Controller) { c.after = after }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func New(player Player, opts ...Option) *Controller {
	c := &Controller{
		player:      player,
		notifier:    nopNotifier{},
		revealDelay: 1500 * time.Millisecond,
		after:       func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		state:       StateIdle,
		rate:        1.0,
		subscribers: make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) transition(to State) bool {
	if !canTransition(c.state, to) {
		log.Printf("playback: ignoring transition %s -> %s", c.state, to)
		return false
	}
	c.state = to
	return true
}

// Play delegates to the element. A rejected play request (autoplay policy)
// surfaces as a notification, not a silent failure.
func (c *Controller) Play() {
	if err := c.player.Play(); err != nil {
		c.notifier.Notify(fmt.Sprintf("Playback could not start: %v", err))
	}
}

func (c *Controller) Pause() {
	c.player.Pause()
}

func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// SetRate delegates any positive rate to the platform and echoes it back.
func (c *Controller) SetRate(rate float64) {
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
	c.player.SetRate(rate)
	c.notifier.Notify(fmt.Sprintf("Playback speed: %.2gx", rate))
}

// SeekTo moves playback position. Targets outside [0, duration] are ignored.
// The position is updated immediately rather than waiting for the next
// timeupdate tick.
func (c *Controller) SeekTo(seconds float64) {
	c.mu.Lock()
	if math.IsNaN(seconds) || seconds < 0 || seconds > c.duration {
		c.mu.Unlock()
		return
	}
	c.currentTime = seconds
	if c.state == StateEnded {
		c.transition(StateReady)
	}
	c.mu.Unlock()
	c.player.Seek(seconds)
}

// SeekRelative clamps currentTime+delta into [0, duration] and delegates.
func (c *Controller) SeekRelative(delta float64) {
	c.mu.Lock()
	target := c.currentTime + delta
	if target < 0 {
		target = 0
	}
	if target > c.duration {
		target = c.duration
	}
	c.mu.Unlock()
	c.SeekTo(target)
}

// Reset returns an ended stream to ready at position zero.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.currentTime = 0
	if c.state == StateEnded {
		c.transition(StateReady)
	}
	c.mu.Unlock()
	c.player.Seek(0)
}

// HandleLoadStart mirrors the element starting to fetch the stream.
func (c *Controller) HandleLoadStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(StateLoading)
}

// HandleLoaded mirrors loadedmetadata: the duration becomes known.
func (c *Controller) HandleLoaded(duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = duration
	c.transition(StateReady)
}

// HandleTimeUpdate mirrors the element's timeupdate event. Non-numeric or
// negative positions clamp to zero so they cannot poison Progress.
func (c *Controller) HandleTimeUpdate(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.currentTime = seconds
}

// HandlePlay mirrors the element's play event. The flag follows the state
// machine: a play event in a state that cannot transition to playing (ended,
// idle, loading) leaves both untouched.
func (c *Controller) HandlePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transition(StatePlaying) {
		c.playing = true
	}
}

func (c *Controller) HandlePause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.transition(StatePaused)
}

// HandleEnded resets the position, stops playback, and schedules the
// content-finished signal after the reveal delay. Subscribers with a full
// buffer, or no subscribers at all, simply miss the signal.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	c.currentTime = 0
	c.playing = false
	c.transition(StateEnded)
	c.mu.Unlock()

	c.after(c.revealDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for ch := range c.subscribers {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
}

// HandleError surfaces a media error; playback state stays as last known.
func (c *Controller) HandleError(message string) {
	c.notifier.Notify("Playback error: " + message)
}

// Finished returns a channel that receives one signal per content-finish
// event. The caller must invoke cancel to avoid leaks.
func (c *Controller) Finished() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Progress is the played percentage, zero when the duration is unknown.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duration <= 0 || math.IsNaN(c.duration) {
		return 0
	}
	return c.currentTime / c.duration * 100
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.state,
		CurrentTime: c.currentTime,
		Duration:    c.duration,
		Rate:        c.rate,
		IsPlaying:   c.playing,
	}
}

// FormatTime renders seconds as M:SS, minutes unpadded. Negative or
// non-numeric input renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
