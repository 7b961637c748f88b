package keymap

import (
	"strings"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	l, err := NewLayout(DefaultBindings())
	if err != nil {
		t.Fatalf("default bindings are invalid: %v", err)
	}

	tests := map[byte]Action{
		'f':  {Kind: Strike, Delta: -1},
		'x':  {Kind: Strike, Delta: -7},
		'z':  {Kind: Strike, Delta: -12},
		'h':  {Kind: Strike, Delta: 0},
		'j':  {Kind: Strike, Delta: 1},
		'.':  {Kind: Strike, Delta: 7},
		'/':  {Kind: Strike, Delta: 12},
		'g':  {Kind: Play, Pitch: 0},
		'r':  {Kind: Tune, Pitch: 0},
		'p':  {Kind: Shift, Delta: 12},
		'q':  {Kind: Shift, Delta: -12},
		'0':  {Kind: Recall, Slot: 0},
		'7':  {Kind: Recall, Slot: 7},
		'w':  {Kind: Decay, Amount: -0.5},
		'e':  {Kind: Decay, Amount: 0.5},
		'u':  {Kind: Arm},
		't':  {Kind: ToggleInstrument},
		' ':  {Kind: Silence},
		0x03: {Kind: Quit},
		0x1b: {Kind: Quit},
	}

	for key, expected := range tests {
		got, ok := l.Lookup(key)
		if !ok || got != expected {
			t.Errorf("Lookup(%q) = %+v, %v; expected %+v", key, got, ok, expected)
		}
	}

	if _, ok := l.Lookup('b'); ok {
		t.Error("'b' should be unbound")
	}
}

func TestBindingValidate(t *testing.T) {
	tests := map[string]struct {
		binding  Binding
		errorMsg string
	}{
		"valid strike":   {binding: Binding{Keys: []string{"a"}, Action: Strike, Delta: 2}},
		"named key":      {binding: Binding{Keys: []string{"Space"}, Action: Silence}},
		"no keys":        {binding: Binding{Action: Arm}, errorMsg: "keys cannot be empty"},
		"long key":       {binding: Binding{Keys: []string{"ab"}, Action: Arm}, errorMsg: "single character"},
		"no action":      {binding: Binding{Keys: []string{"a"}}, errorMsg: "action cannot be empty"},
		"unknown action": {binding: Binding{Keys: []string{"a"}, Action: "sweep"}, errorMsg: "unknown action"},
		"bad slot":       {binding: Binding{Keys: []string{"a"}, Action: Recall, Slot: 10}, errorMsg: "between 0 and 9"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.binding.Validate()
			if test.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.errorMsg) {
				t.Errorf("error = %v, expected it to mention %q", err, test.errorMsg)
			}
		})
	}
}

func TestNewLayoutRejectsConflicts(t *testing.T) {
	_, err := NewLayout(map[string]*Binding{
		"one": {Keys: []string{"k"}, Action: Arm},
		"two": {Keys: []string{"k"}, Action: Quit},
	})
	if err == nil || !strings.Contains(err.Error(), "'one' and 'two'") {
		t.Errorf("error = %v, expected a conflict between 'one' and 'two'", err)
	}
}

func TestMatchesInput(t *testing.T) {
	b := Binding{Keys: []string{"esc", "x"}, Action: Quit}
	if !b.MatchesInput(0x1b) || !b.MatchesInput('x') {
		t.Error("binding does not match its own keys")
	}
	if b.MatchesInput('y') {
		t.Error("binding matches an unrelated key")
	}
}

func TestMerge(t *testing.T) {
	base := map[string]*Binding{
		"low":  {Keys: []string{"f"}, Action: Strike, Delta: -1},
		"quit": {Keys: []string{"esc", "q"}, Action: Quit},
		"arm":  {Keys: []string{"u"}, Action: Arm},
	}
	overrides := map[string]*Binding{
		"tonic": {Keys: []string{"f"}, Action: Play, Pitch: 3},
		"shift": {Keys: []string{"q"}, Action: Shift, Delta: 12},
		"arm":   {Keys: []string{"y"}, Action: Arm},
	}

	merged := Merge(base, overrides)
	if _, ok := merged["low"]; ok {
		t.Error("a base binding that lost every key should be dropped")
	}
	if keys := merged["quit"].Keys; len(keys) != 1 || keys[0] != "esc" {
		t.Errorf("quit keys = %v, expected [esc]", keys)
	}
	if len(base["quit"].Keys) != 2 {
		t.Error("Merge modified the base bindings")
	}
	if merged["arm"] != overrides["arm"] {
		t.Error("an override should replace the base binding of the same name")
	}

	l, err := NewLayout(merged)
	if err != nil {
		t.Fatalf("merged bindings conflict: %v", err)
	}
	tests := map[byte]Action{
		'f':  {Kind: Play, Pitch: 3},
		'q':  {Kind: Shift, Delta: 12},
		'y':  {Kind: Arm},
		0x1b: {Kind: Quit},
	}
	for key, expected := range tests {
		if got, ok := l.Lookup(key); !ok || got != expected {
			t.Errorf("Lookup(%q) = %+v, %v; expected %+v", key, got, ok, expected)
		}
	}
	if _, ok := l.Lookup('u'); ok {
		t.Error("'u' should be unbound after arm moved to 'y'")
	}
}
