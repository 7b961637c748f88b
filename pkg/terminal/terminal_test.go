package terminal

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
)

func collect(t *testing.T, got <-chan []byte, want int) []byte {
	t.Helper()
	var out []byte
	timeout := time.After(5 * time.Second)
	for len(out) < want {
		select {
		case b := <-got:
			out = append(out, b...)
		case <-timeout:
			t.Fatalf("received %q, expected %d bytes", out, want)
		}
	}
	return out
}

func TestTerminalRawKeys(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	got := make(chan []byte, 8)
	term := NewTerminal(tty, zerolog.Nop())
	term.HandleInput = func(data []byte) error {
		got <- append([]byte(nil), data...)
		return nil
	}
	if err := term.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer term.Stop()

	if !term.IsRaw() {
		t.Fatal("pty input was not switched to raw mode")
	}

	// Without raw mode these would wait for a newline.
	if _, err := ptmx.Write([]byte("hj")); err != nil {
		t.Fatal(err)
	}
	if keys := collect(t, got, 2); string(keys) != "hj" {
		t.Errorf("keys = %q, expected \"hj\"", keys)
	}
}

func TestTerminalStreamEndsOnEOF(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := make(chan []byte, 8)
	term := NewTerminal(r, zerolog.Nop())
	term.HandleInput = func(data []byte) error {
		got <- append([]byte(nil), data...)
		return nil
	}
	if err := term.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if term.IsRaw() {
		t.Error("a pipe cannot be in raw mode")
	}

	w.Write([]byte("g0"))
	if keys := collect(t, got, 2); string(keys) != "g0" {
		t.Errorf("keys = %q, expected \"g0\"", keys)
	}
	w.Close()

	done := make(chan struct{})
	go func() {
		term.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after EOF")
	}
}

func TestNewlineWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewlineWriter(&buf).Write([]byte("a\nb\n"))
	if err != nil || n != 4 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if buf.String() != "a\r\nb\r\n" {
		t.Errorf("wrote %q", buf.String())
	}
}
