package phase

import (
	"fmt"
	"math"
	"math/cmplx"

	"dynaconn/domain/core"
)

// bandpassOrder is the analog prototype order. The band-pass transform
// doubles it, giving five filter taps.
const bandpassOrder = 2

// Bandpass is a second-order Butterworth band-pass filter in transfer
// function form, applied as a causal direct-form II transposed
// difference equation with zero initial state.
type Bandpass struct {
	LowHz  float64
	HighHz float64
	b      []float64
	a      []float64
}

// NewBandpass designs a Butterworth band-pass for the given corner
// frequencies in Hz at the given sampling rate. The band must sit
// strictly inside (0, Nyquist).
func NewBandpass(lowHz, highHz, sampleRateHz float64) (*Bandpass, error) {
	if sampleRateHz <= 0 {
		return nil, core.ConfigError("bandpass", "sample rate must be positive")
	}
	nyquist := sampleRateHz / 2
	if lowHz <= 0 {
		return nil, core.ConfigError("bandpass", "low corner must be positive")
	}
	if highHz <= lowHz {
		return nil, core.ConfigError("bandpass", "high corner must exceed low corner")
	}
	if highHz >= nyquist {
		return nil, core.ConfigError("bandpass", fmt.Sprintf(
			"high corner %.4f Hz must stay below Nyquist %.4f Hz", highHz, nyquist))
	}

	b, a := designBandpass(bandpassOrder, lowHz/nyquist, highHz/nyquist)
	return &Bandpass{LowHz: lowHz, HighHz: highHz, b: b, a: a}, nil
}

// Coefficients returns copies of the numerator and denominator taps.
func (f *Bandpass) Coefficients() (b, a []float64) {
	return append([]float64(nil), f.b...), append([]float64(nil), f.a...)
}

// Apply filters x and returns a new slice of the same length.
func (f *Bandpass) Apply(x []float64) []float64 {
	nb := len(f.b)
	state := make([]float64, nb-1)
	y := make([]float64, len(x))
	for m, xv := range x {
		yv := f.b[0]*xv + state[0]
		for i := 1; i < nb-1; i++ {
			state[i-1] = f.b[i]*xv + state[i] - f.a[i]*yv
		}
		state[nb-2] = f.b[nb-1]*xv - f.a[nb-1]*yv
		y[m] = yv
	}
	return y
}

// designBandpass produces transfer-function taps for a Butterworth
// band-pass with corners given as fractions of the Nyquist frequency.
// The chain is the standard digital IIR design: analog prototype poles,
// frequency prewarp, low-pass to band-pass transform in zpk form, then
// the bilinear transform.
func designBandpass(order int, lowFrac, highFrac float64) (b, a []float64) {
	// Prewarp to the analog frequencies the bilinear transform maps back
	// onto the requested digital corners. The design-time sampling rate
	// is the conventional fs = 2.
	const fs = 2.0
	warpedLow := 2 * fs * math.Tan(math.Pi*lowFrac/fs)
	warpedHigh := 2 * fs * math.Tan(math.Pi*highFrac/fs)

	centre := math.Sqrt(warpedLow * warpedHigh)
	width := warpedHigh - warpedLow

	poles := butterworthPoles(order)

	zeros, poles, gain := lowpassToBandpass(poles, centre, width)
	zeros, poles, gain = bilinear(zeros, poles, gain, fs)

	return transferFunction(zeros, poles, gain)
}

// butterworthPoles returns the stable analog prototype poles on the
// unit circle's left half.
func butterworthPoles(order int) []complex128 {
	poles := make([]complex128, order)
	for i := 0; i < order; i++ {
		m := float64(-order + 1 + 2*i)
		theta := math.Pi * m / float64(2*order)
		poles[i] = -cmplx.Exp(complex(0, theta))
	}
	return poles
}

// lowpassToBandpass moves a low-pass prototype to a band pass centred
// on wo with bandwidth bw. Each prototype pole splits into a pair, and
// the prototype's implicit zeros at infinity land at the origin.
func lowpassToBandpass(poles []complex128, wo, bw float64) (z, p []complex128, k float64) {
	degree := len(poles)

	p = make([]complex128, 0, 2*degree)
	for _, pole := range poles {
		scaled := pole * complex(bw/2, 0)
		shift := cmplx.Sqrt(scaled*scaled - complex(wo*wo, 0))
		p = append(p, scaled+shift)
	}
	for _, pole := range poles {
		scaled := pole * complex(bw/2, 0)
		shift := cmplx.Sqrt(scaled*scaled - complex(wo*wo, 0))
		p = append(p, scaled-shift)
	}

	z = make([]complex128, degree)
	k = math.Pow(bw, float64(degree))
	return z, p, k
}

// bilinear maps analog zeros and poles into the z-plane, filling the
// numerator's missing degree with zeros at z = -1.
func bilinear(z, p []complex128, k float64, fs float64) ([]complex128, []complex128, float64) {
	fs2 := complex(2*fs, 0)
	degree := len(p) - len(z)

	zd := make([]complex128, 0, len(z)+degree)
	for _, zero := range z {
		zd = append(zd, (fs2+zero)/(fs2-zero))
	}
	for i := 0; i < degree; i++ {
		zd = append(zd, -1)
	}

	pd := make([]complex128, len(p))
	num := complex(1, 0)
	den := complex(1, 0)
	for _, zero := range z {
		num *= fs2 - zero
	}
	for i, pole := range p {
		pd[i] = (fs2 + pole) / (fs2 - pole)
		den *= fs2 - pole
	}

	kd := k * real(num/den)
	return zd, pd, kd
}

// transferFunction expands zpk form into polynomial taps. Conjugate
// root pairs make the polynomials real; residual imaginary parts are
// rounding noise and are dropped.
func transferFunction(z, p []complex128, k float64) (b, a []float64) {
	bc := polynomialFromRoots(z)
	ac := polynomialFromRoots(p)

	b = make([]float64, len(bc))
	for i, c := range bc {
		b[i] = k * real(c)
	}
	a = make([]float64, len(ac))
	for i, c := range ac {
		a[i] = real(c)
	}
	return b, a
}

func polynomialFromRoots(roots []complex128) []complex128 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	return coeffs
}
