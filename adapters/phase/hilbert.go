package phase

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hilbert computes analytic signals by zeroing the negative half of the
// spectrum and doubling the positive half. Scratch buffers are sized for
// one trace length, so each instance serves one goroutine.
type hilbert struct {
	n     int
	fft   *fourier.CmplxFFT
	seq   []complex128
	coeff []complex128
}

func newHilbert(n int) *hilbert {
	return &hilbert{
		n:     n,
		fft:   fourier.NewCmplxFFT(n),
		seq:   make([]complex128, n),
		coeff: make([]complex128, n),
	}
}

// analytic fills h.seq with the analytic signal of x.
func (h *hilbert) analytic(x []float64) []complex128 {
	n := h.n
	for i, v := range x {
		h.seq[i] = complex(v, 0)
	}
	h.coeff = h.fft.Coefficients(h.coeff, h.seq)

	// Half-spectrum weights: DC kept, positive frequencies doubled, the
	// shared Nyquist bin (even n) kept, negative frequencies zeroed.
	if n%2 == 0 {
		for k := 1; k < n/2; k++ {
			h.coeff[k] *= 2
		}
		for k := n/2 + 1; k < n; k++ {
			h.coeff[k] = 0
		}
	} else {
		for k := 1; k <= (n-1)/2; k++ {
			h.coeff[k] *= 2
		}
		for k := (n-1)/2 + 1; k < n; k++ {
			h.coeff[k] = 0
		}
	}

	h.seq = h.fft.Sequence(h.seq, h.coeff)

	// The transform is unnormalized: forward then inverse scales by n.
	scale := complex(1/float64(n), 0)
	for i := range h.seq {
		h.seq[i] *= scale
	}
	return h.seq
}

// phases writes the instantaneous phase of x's analytic signal into dst.
// Results lie in (-pi, pi]: Atan2's -pi branch is folded onto +pi.
func (h *hilbert) phases(x []float64, dst []float64) {
	z := h.analytic(x)
	for i, v := range z {
		phi := math.Atan2(imag(v), real(v))
		if phi == -math.Pi {
			phi = math.Pi
		}
		dst[i] = phi
	}
}
