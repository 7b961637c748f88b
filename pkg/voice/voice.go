package voice

import "math"

const (
	// ReferenceFrequency is the frequency of pitch 0 (A4).
	ReferenceFrequency = 440.0
	// MinWavelength is the shortest wavelength a voice may have, in samples.
	MinWavelength = 2.0
	// MaxWavelength is the longest wavelength a voice may have, in samples.
	MaxWavelength = float64(1 << 31)
)

// Voice is one sounding oscillator tied to a single pitch.
type Voice struct {
	Pitch        int     // semitones from ReferenceFrequency
	Wavelength   float64 // samples per cycle, derived from Pitch
	Phase        float64 // position within Wavelength
	Volume       float64 // envelope at the start of the current block
	TargetVolume float64 // envelope at the end of the current block
	Age          uint64  // samples rendered since the voice was created
}

// SetPitch assigns the pitch and recomputes the wavelength for sampleRate.
func (v *Voice) SetPitch(pitch int, sampleRate int) {
	v.Pitch = pitch
	v.Wavelength = Wavelength(pitch, sampleRate)
	if v.Phase >= v.Wavelength {
		v.Phase = math.Mod(v.Phase, v.Wavelength)
	}
}

// Wavelength returns the number of samples per cycle of pitch at sampleRate,
// clamped into [MinWavelength, MaxWavelength].
func Wavelength(pitch int, sampleRate int) float64 {
	freq := ReferenceFrequency * math.Pow(2, float64(pitch)/12)
	return clampWavelength(float64(sampleRate) / freq)
}

func clampWavelength(w float64) float64 {
	switch {
	case math.IsNaN(w), w < MinWavelength:
		return MinWavelength
	case w > MaxWavelength:
		return MaxWavelength
	}
	return w
}

// advance moves the oscillator forward by one sample.
func (v *Voice) advance() {
	v.Phase++
	if v.Phase >= v.Wavelength {
		v.Phase = math.Mod(v.Phase, v.Wavelength)
	}
	v.Age++
}

// tremolo returns the age-based amplitude modulation, in [0.8, 1.2].
func (v *Voice) tremolo() float64 {
	return (math.Sin(float64(v.Age)/1000) + 5) / 5
}

func lerp(x, y, a float64) float64 {
	return x + a*(y-x)
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
