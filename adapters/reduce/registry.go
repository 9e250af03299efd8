package reduce

import (
	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
	"dynaconn/ports"
)

// ForVariant constructs the reducer for a variant. neighbors only
// applies to the manifold variant.
func ForVariant(v connectivity.Variant, neighbors int) (ports.TrajectoryReducer, error) {
	switch v {
	case connectivity.VariantLinear:
		return NewLinear(), nil
	case connectivity.VariantSpectral:
		return NewSpectral(), nil
	case connectivity.VariantManifold:
		return NewManifold(neighbors), nil
	default:
		return nil, core.ConfigError("variant", "unknown reduction variant "+string(v))
	}
}
