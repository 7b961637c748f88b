package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind names what a key does.
type Kind string

const (
	Strike           Kind = "strike"            // shift the current pitch by Delta and play it
	Play             Kind = "play"              // play the absolute Pitch
	Shift            Kind = "shift"             // shift the current pitch by Delta silently
	Tune             Kind = "set_pitch"         // make Pitch current without playing it
	Recall           Kind = "recall"            // replay recall slot Slot
	Arm              Kind = "arm"               // latch the next note
	ToggleInstrument Kind = "toggle_instrument" // switch waveform
	Decay            Kind = "decay"             // change the decay rate by Amount
	Silence          Kind = "all_notes_off"     // drop every voice
	Quit             Kind = "quit"
)

// Action is the effect of a single key press.
type Action struct {
	Kind   Kind
	Delta  int
	Pitch  int
	Slot   int
	Amount float64
}

// Binding defines the properties of a key binding from the config file.
type Binding struct {
	Keys   []string `toml:"keys"` // single characters or names like "space"
	Action Kind     `toml:"action"`
	Delta  int      `toml:"delta"`
	Pitch  int      `toml:"pitch"`
	Slot   int      `toml:"slot"`
	Amount float64  `toml:"amount"`
}

var namedKeys = map[string]byte{
	"space":  ' ',
	"tab":    '\t',
	"enter":  '\r',
	"esc":    0x1b,
	"ctrl-c": 0x03,
	"ctrl-d": 0x04,
}

// Validate checks if the binding is valid.
func (b *Binding) Validate() error {
	if len(b.Keys) == 0 {
		return errors.New("keys cannot be empty")
	}
	for _, k := range b.Keys {
		if _, err := parseKey(k); err != nil {
			return err
		}
	}
	switch b.Action {
	case Strike, Play, Shift, Tune, Arm, ToggleInstrument, Decay, Silence, Quit:
	case Recall:
		if b.Slot < 0 || b.Slot > 9 {
			return fmt.Errorf("recall slot must be between 0 and 9, got %d", b.Slot)
		}
	case "":
		return errors.New("action cannot be empty")
	default:
		return fmt.Errorf("unknown action %q", b.Action)
	}
	return nil
}

// MatchesInput checks if a byte is one of the binding's keys.
func (b *Binding) MatchesInput(c byte) bool {
	for _, k := range b.Keys {
		if key, err := parseKey(k); err == nil && key == c {
			return true
		}
	}
	return false
}

func (b *Binding) action() Action {
	return Action{Kind: b.Action, Delta: b.Delta, Pitch: b.Pitch, Slot: b.Slot, Amount: b.Amount}
}

func parseKey(s string) (byte, error) {
	if c, ok := namedKeys[strings.ToLower(s)]; ok {
		return c, nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("key %q must be a single character or one of space, tab, enter, esc, ctrl-c, ctrl-d", s)
	}
	return s[0], nil
}

// Layout resolves input bytes to actions.
type Layout struct {
	actions [256]Action
	bound   [256]bool
}

// NewLayout validates bindings and builds a lookup table. A key bound by
// two bindings is an error.
func NewLayout(bindings map[string]*Binding) (*Layout, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	l := &Layout{}
	owner := map[byte]string{}
	for _, name := range names {
		b := bindings[name]
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid binding '%s': %w", name, err)
		}
		for _, k := range b.Keys {
			c, _ := parseKey(k)
			if prev, ok := owner[c]; ok {
				return nil, fmt.Errorf("key %q is bound by both '%s' and '%s'", k, prev, name)
			}
			owner[c] = name
			l.actions[c] = b.action()
			l.bound[c] = true
		}
	}
	return l, nil
}

// Lookup returns the action bound to c.
func (l *Layout) Lookup(c byte) (Action, bool) {
	return l.actions[c], l.bound[c]
}

// DefaultBindings returns the home-row layout. Keys left of g strike
// downward and keys from h rightward strike upward; the further a key is
// from the middle, the larger its interval.
func DefaultBindings() map[string]*Binding {
	b := map[string]*Binding{
		"reset":       {Keys: []string{"g"}, Action: Play, Pitch: 0},
		"home":        {Keys: []string{"r"}, Action: Tune, Pitch: 0},
		"octave_up":   {Keys: []string{"p"}, Action: Shift, Delta: 12},
		"octave_down": {Keys: []string{"q"}, Action: Shift, Delta: -12},
		"decay_less":  {Keys: []string{"w"}, Action: Decay, Amount: -0.5},
		"decay_more":  {Keys: []string{"e"}, Action: Decay, Amount: 0.5},
		"latch":       {Keys: []string{"u"}, Action: Arm},
		"instrument":  {Keys: []string{"t"}, Action: ToggleInstrument},
		"silence":     {Keys: []string{"space"}, Action: Silence},
		"quit":        {Keys: []string{"ctrl-c", "ctrl-d", "esc"}, Action: Quit},
	}

	down := []string{"f", "d", "s", "a", "v", "c", "x"}
	for i, k := range down {
		b[fmt.Sprintf("down_%d", i+1)] = &Binding{Keys: []string{k}, Action: Strike, Delta: -(i + 1)}
	}
	b["down_12"] = &Binding{Keys: []string{"z"}, Action: Strike, Delta: -12}

	up := []string{"h", "j", "k", "l", ";", "m", ",", "."}
	for i, k := range up {
		b[fmt.Sprintf("up_%d", i)] = &Binding{Keys: []string{k}, Action: Strike, Delta: i}
	}
	b["up_12"] = &Binding{Keys: []string{"/"}, Action: Strike, Delta: 12}

	for slot := 0; slot <= 9; slot++ {
		b[fmt.Sprintf("recall_%d", slot)] = &Binding{Keys: []string{fmt.Sprint(slot)}, Action: Recall, Slot: slot}
	}

	return b
}

// Merge lays overrides over base. An override replaces the base binding
// of the same name and takes its keys from any other base binding; a base
// binding left without keys is dropped.
func Merge(base, overrides map[string]*Binding) map[string]*Binding {
	out := make(map[string]*Binding, len(base)+len(overrides))
	for name, b := range base {
		if _, ok := overrides[name]; ok {
			continue
		}
		var keys []string
		for _, k := range b.Keys {
			c, err := parseKey(k)
			if err != nil || !claimed(overrides, c) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			continue
		}
		if len(keys) < len(b.Keys) {
			trimmed := *b
			trimmed.Keys = keys
			b = &trimmed
		}
		out[name] = b
	}
	for name, b := range overrides {
		out[name] = b
	}
	return out
}

func claimed(bindings map[string]*Binding, c byte) bool {
	for _, b := range bindings {
		if b != nil && b.MatchesInput(c) {
			return true
		}
	}
	return false
}
