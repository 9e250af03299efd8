package connectivity

import (
	"strings"

	"dynaconn/domain/core"
)

// Variant selects the dimensionality-reduction strategy applied to each
// per-timepoint coherence matrix.
type Variant string

const (
	// VariantLinear projects each matrix onto its first two principal
	// components.
	VariantLinear Variant = "linear"

	// VariantSpectral keeps the eigenvector of the largest eigenvalue.
	VariantSpectral Variant = "spectral"

	// VariantManifold embeds matrix rows with locally linear embedding.
	VariantManifold Variant = "manifold"
)

// Variants lists the supported reduction variants in display order.
func Variants() []Variant {
	return []Variant{VariantLinear, VariantSpectral, VariantManifold}
}

// ParseVariant validates a raw variant name.
func ParseVariant(raw string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(raw))); v {
	case VariantLinear, VariantSpectral, VariantManifold:
		return v, nil
	default:
		return "", core.ConfigError("variant", "unknown reduction variant "+raw)
	}
}

func (v Variant) String() string {
	return string(v)
}
