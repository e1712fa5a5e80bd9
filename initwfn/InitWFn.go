// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuration files.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/pgtrain/utils/typedjson"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU    Type = "GlorotU"
	GlorotN    Type = "GlorotN"
	Constant   Type = "Constant"
	Orthogonal Type = "Orthogonal"
)

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// configTypes holds the configuration type of each initializer Type
var configTypes = typedjson.Registry{}

func init() {
	configTypes.Register(string(GlorotU), GlorotConfig{})
	configTypes.Register(string(GlorotN), GlorotConfig{})
	configTypes.Register(string(Constant), ConstantConfig{})
	configTypes.Register(string(Orthogonal), OrthogonalConfig{})
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	decoded, typeName, err := configTypes.Decode(data, "Type", "Config")
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	config := decoded.(Config)
	if config.Type() != Type(typeName) {
		return fmt.Errorf("unmarshalJSON: config describes a %v "+
			"initializer, not %v", config.Type(), typeName)
	}

	i.Type = config.Type()
	i.Config = config
	i.initWFn = config.Create()
	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
