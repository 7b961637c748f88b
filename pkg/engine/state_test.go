package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/hiway/keysynth/pkg/latch"
	"github.com/hiway/keysynth/pkg/recall"
	"github.com/hiway/keysynth/pkg/voice"
)

func TestRenderOneBlock(t *testing.T) {
	for _, wf := range []voice.Waveform{voice.Hotel, voice.Triangle} {
		t.Run(wf.String(), func(t *testing.T) {
			s := NewState(48000)
			s.SetInstrument(wf)
			if err := s.Trigger(0); err != nil {
				t.Fatal(err)
			}

			out := make([]int16, 128)
			s.RenderBlock(out)

			v, ok := s.Pool().Find(0)
			if !ok {
				t.Fatal("voice for pitch 0 disappeared")
			}
			expected := 1 - 3.0*128/48000
			if math.Abs(v.TargetVolume-expected) > 1e-12 {
				t.Errorf("target volume = %v, expected %v", v.TargetVolume, expected)
			}

			silent := true
			for i, sample := range out {
				if sample != 0 {
					silent = false
				}
				if sample > voice.Amplitude || sample < -voice.Amplitude {
					t.Fatalf("sample %d = %d exceeds peak amplitude %d", i, sample, voice.Amplitude)
				}
			}
			if silent {
				t.Error("rendered block is silent")
			}
		})
	}
}

func TestTriggerTwiceMakesOneVoice(t *testing.T) {
	s := NewState(48000)
	s.Trigger(2)
	s.Trigger(2)
	if n := s.Pool().Len(); n != 1 {
		t.Errorf("expected 1 voice, got %d", n)
	}
}

func TestTriggerAtCapacity(t *testing.T) {
	s := NewState(48000)
	for p := 1; p <= voice.MaxVoices; p++ {
		if err := s.Trigger(p); err != nil {
			t.Fatal(err)
		}
	}

	err := s.Trigger(100)
	if !errors.Is(err, voice.ErrCapacityExceeded) {
		t.Fatalf("Trigger past capacity error = %v", err)
	}
	for _, p := range s.Snapshot().Recall {
		if p == 100 {
			t.Error("a rejected pitch was recorded for recall")
		}
	}
}

func TestRecall(t *testing.T) {
	s := NewState(48000)
	s.Trigger(4)
	s.Trigger(-3)
	s.AllNotesOff()

	pitch, err := s.Recall(1)
	if err != nil || pitch != -3 {
		t.Fatalf("Recall(1) = %d, %v; expected -3", pitch, err)
	}
	if _, ok := s.Pool().Find(-3); !ok {
		t.Error("Recall did not replay the pitch")
	}
	if s.Current() != -3 {
		t.Errorf("current pitch = %d, expected -3", s.Current())
	}

	pitch, err = s.Recall(9)
	if err != nil || pitch != 0 {
		t.Fatalf("Recall(9) = %d, %v; expected the reference pitch", pitch, err)
	}
	if _, ok := s.Pool().Find(0); !ok {
		t.Error("recalling an empty slot did not play pitch 0")
	}

	if _, err := s.Recall(10); !errors.Is(err, recall.ErrInvalidSlot) {
		t.Errorf("Recall(10) error = %v, expected ErrInvalidSlot", err)
	}
}

func TestLatchDefersAndReplays(t *testing.T) {
	s := NewState(48000)

	s.Arm()
	if err := s.Trigger(7); err != nil {
		t.Fatal(err)
	}
	if s.Pool().Len() != 0 {
		t.Fatal("an armed latch must not start a voice")
	}
	snap := s.Snapshot()
	if snap.Recall[0] != 7 || snap.Armed || len(snap.Latched) != 1 {
		t.Fatalf("after latching: %+v", snap)
	}

	s.Arm()
	s.Trigger(9)

	if err := s.Trigger(1); err != nil {
		t.Fatal(err)
	}
	for _, p := range []int{1, 7, 9} {
		if _, ok := s.Pool().Find(p); !ok {
			t.Errorf("pitch %d not sounding after the next trigger", p)
		}
	}
	if n := len(s.Snapshot().Latched); n != 0 {
		t.Errorf("%d latched pitches left", n)
	}
	if s.Current() != 9 {
		t.Errorf("current pitch = %d, expected the last latched pitch 9", s.Current())
	}
}

func TestLatchOverflow(t *testing.T) {
	s := NewState(48000)
	for i := 0; i < latch.Capacity; i++ {
		s.Arm()
		s.Trigger(i + 1)
	}
	s.Arm()
	if err := s.Trigger(50); !errors.Is(err, latch.ErrLatchFull) {
		t.Errorf("Trigger into a full latch error = %v", err)
	}
	if s.Pool().Len() != 0 {
		t.Error("overflowing the latch started a voice")
	}
}

func TestStrikeAndShift(t *testing.T) {
	s := NewState(48000)
	s.Strike(-2)
	s.ShiftPitch(12)
	s.Strike(1)

	if s.Current() != 11 {
		t.Errorf("current pitch = %d, expected 11", s.Current())
	}
	for _, p := range []int{-2, 11} {
		if _, ok := s.Pool().Find(p); !ok {
			t.Errorf("pitch %d not sounding", p)
		}
	}
	if _, ok := s.Pool().Find(10); ok {
		t.Error("ShiftPitch must not play")
	}
}

func TestAdjustDecayRateFloorsAtZero(t *testing.T) {
	s := NewState(48000)
	for i := 0; i < 10; i++ {
		if err := s.AdjustDecayRate(-0.5); err != nil {
			t.Fatal(err)
		}
	}
	if r := s.Snapshot().DecayRate; r != 0 {
		t.Errorf("decay rate = %v, expected 0", r)
	}
}

func TestLatchedPitchKeptWhenPoolIsFull(t *testing.T) {
	s := NewState(48000)
	for p := 0; p < voice.MaxVoices-1; p++ {
		if err := s.Trigger(p); err != nil {
			t.Fatal(err)
		}
	}
	s.Arm()
	s.Trigger(50)
	s.Arm()
	s.Trigger(51)

	// Re-attacking pitch 1 frees no voice: 50 takes the last one and 51 does not fit.
	err := s.Trigger(1)
	if !errors.Is(err, voice.ErrCapacityExceeded) {
		t.Fatalf("Trigger error = %v, expected ErrCapacityExceeded", err)
	}
	if _, ok := s.Pool().Find(50); !ok {
		t.Error("latched pitch 50 should have started")
	}
	if n := s.Pool().Len(); n != voice.MaxVoices {
		t.Errorf("pool holds %d voices, expected %d", n, voice.MaxVoices)
	}
	latched := s.Snapshot().Latched
	if len(latched) != 1 || latched[0] != 51 {
		t.Errorf("latched = %v, expected [51]", latched)
	}
	if s.Current() != 50 {
		t.Errorf("current pitch = %d, expected the last pitch that started, 50", s.Current())
	}

	// Once voices die out, the next trigger plays what is still latched.
	s.AllNotesOff()
	s.Arm()
	s.Trigger(51)
	if err := s.Trigger(2); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Pool().Find(51); !ok {
		t.Error("pitch 51 did not play from the latch")
	}
}

func TestAllNotesOffEmptiesLatch(t *testing.T) {
	s := NewState(48000)
	s.Trigger(3)
	s.Arm()
	s.Trigger(7)
	s.Arm()

	s.AllNotesOff()

	snap := s.Snapshot()
	if len(snap.Voices) != 0 || len(snap.Latched) != 0 || snap.Armed {
		t.Errorf("after AllNotesOff: voices=%d latched=%v armed=%v", len(snap.Voices), snap.Latched, snap.Armed)
	}
	if err := s.Trigger(1); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Pool().Find(7); ok {
		t.Error("a pitch latched before AllNotesOff was played")
	}
}
