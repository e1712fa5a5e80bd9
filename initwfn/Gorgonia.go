package initwfn

import G "gorgonia.org/gorgonia"

// GlorotConfig configures the Glorot initializers built into Gorgonia.
// Weights are drawn from a normal distribution if Normal is set and
// from a uniform distribution otherwise.
type GlorotConfig struct {
	Gain   float64
	Normal bool
}

// NewGlorotU returns a Glorot initializer drawing from a uniform
// distribution
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotConfig{Gain: gain})
}

// NewGlorotN returns a Glorot initializer drawing from a normal
// distribution
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotConfig{Gain: gain, Normal: true})
}

// Type returns GlorotN or GlorotU depending on the distribution
func (g GlorotConfig) Type() Type {
	if g.Normal {
		return GlorotN
	}
	return GlorotU
}

// Create returns the Gorgonia Glorot InitWFn
func (g GlorotConfig) Create() G.InitWFn {
	if g.Normal {
		return G.GlorotN(g.Gain)
	}
	return G.GlorotU(g.Gain)
}

// ConstantConfig configures an initializer which sets every weight to
// Value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns an initializer setting every weight to value
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

// NewZeroes returns an initializer setting every weight to 0, which is
// how biases are initialized
func NewZeroes() (*InitWFn, error) {
	return NewConstant(0)
}

// Type returns Constant
func (c ConstantConfig) Type() Type {
	return Constant
}

// Create returns the Gorgonia InitWFn
func (c ConstantConfig) Create() G.InitWFn {
	switch c.Value {
	case 0:
		return G.Zeroes()
	case 1:
		return G.Ones()
	default:
		return G.ValuesOf(c.Value)
	}
}
