package broadctl

import (
	"errors"
	"fmt"
	"time"
)

// LearnState is the position of a learning session. The state machine is
// advisory: the firmware enforces real ordering and answers premature
// polls with the not-ready code.
type LearnState int

const (
	StateIdle LearnState = iota
	StateIRArmed
	StateIRCaptured
	StateRFSweeping
	StateRFLocked
	StateRFArmed
	StateRFCaptured
)

var learnStateNames = map[LearnState]string{
	StateIdle:       "Idle",
	StateIRArmed:    "IRArmed",
	StateIRCaptured: "IRCaptured",
	StateRFSweeping: "RFSweeping",
	StateRFLocked:   "RFLocked",
	StateRFArmed:    "RFArmed",
	StateRFCaptured: "RFCaptured",
}

func (s LearnState) String() string {
	if name, ok := learnStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LearnState(%d)", int(s))
}

// Learning defaults: the device is polled at 1 Hz until the deadline.
const (
	DefaultPollInterval = time.Second
	DefaultLearnTimeout = 30 * time.Second
)

// Learner drives the human-in-the-loop capture flows on an RM handle:
// one-shot IR learning and the two-phase RF sweep. A Learner owns no
// device state; re-authenticating the handle invalidates a session and
// the next poll fails accordingly.
type Learner struct {
	// PollInterval is the delay between polls; Timeout bounds each
	// waiting phase.
	PollInterval time.Duration
	Timeout      time.Duration

	dev   *Device
	state LearnState

	// Prompt, when set, is told when it is the user's turn: "press the
	// button to learn", "hold the button down", "tap the button".
	Prompt func(msg string)

	sleep func(time.Duration)
	now   func() time.Time
}

// NewLearner wraps an RM-family handle.
func NewLearner(d *Device) (*Learner, error) {
	if err := d.requireFamily(FamilyRM, FamilyRM4); err != nil {
		return nil, err
	}
	return &Learner{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultLearnTimeout,
		dev:          d,
		sleep:        time.Sleep,
		now:          time.Now,
	}, nil
}

// State returns the current learning state.
func (l *Learner) State() LearnState {
	return l.state
}

// LearnIR arms IR capture and polls until a code arrives. On timeout the
// state returns to Idle and ErrLearnTimeout is reported.
func (l *Learner) LearnIR() ([]byte, error) {
	if err := l.dev.EnterLearning(); err != nil {
		return nil, err
	}
	l.state = StateIRArmed
	l.prompt("point the remote at the device and press the button to learn")

	code, err := l.pollData()
	if err != nil {
		l.state = StateIdle
		return nil, err
	}
	l.state = StateIRCaptured
	return code, nil
}

// LearnRF runs the full RF flow: sweep while the user holds the button,
// lock the frequency, then capture a short press. Any failure cancels the
// device-side sweep and returns to Idle.
func (l *Learner) LearnRF() ([]byte, error) {
	if err := l.dev.SweepFrequency(); err != nil {
		return nil, err
	}
	l.state = StateRFSweeping
	l.prompt("hold the remote button down until the frequency locks")

	if err := l.pollFrequency(); err != nil {
		l.abort()
		return nil, err
	}
	l.state = StateRFLocked
	l.prompt("release the button")

	if _, err := l.dev.FindRFPacket(); err != nil {
		l.abort()
		return nil, err
	}
	l.state = StateRFArmed
	l.prompt("tap the remote button once")

	code, err := l.pollData()
	if err != nil {
		l.abort()
		return nil, err
	}
	l.state = StateRFCaptured
	return code, nil
}

// Cancel aborts any RF phase on the device and returns to Idle.
func (l *Learner) Cancel() error {
	err := l.dev.CancelSweepFrequency()
	l.state = StateIdle
	return err
}

// abort is Cancel with the device error ignored; the flow is already
// failing for another reason.
func (l *Learner) abort() {
	_ = l.dev.CancelSweepFrequency()
	l.state = StateIdle
}

// pollData polls CheckData until a code arrives or the deadline passes.
func (l *Learner) pollData() ([]byte, error) {
	deadline := l.now().Add(l.Timeout)
	for {
		code, err := l.dev.CheckData()
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, ErrNotReady):
			// keep polling
		default:
			return nil, err
		}

		if !l.now().Before(deadline) {
			return nil, fmt.Errorf("no code captured within %v: %w", l.Timeout, ErrLearnTimeout)
		}
		l.sleep(l.PollInterval)
	}
}

// pollFrequency polls CheckFrequency until the sweep locks.
func (l *Learner) pollFrequency() error {
	deadline := l.now().Add(l.Timeout)
	for {
		locked, err := l.dev.CheckFrequency()
		if err != nil {
			return err
		}
		if locked {
			return nil
		}

		if !l.now().Before(deadline) {
			return fmt.Errorf("frequency sweep did not lock within %v: %w", l.Timeout, ErrLearnTimeout)
		}
		l.sleep(l.PollInterval)
	}
}

func (l *Learner) prompt(msg string) {
	if l.Prompt != nil {
		l.Prompt(msg)
	}
}
