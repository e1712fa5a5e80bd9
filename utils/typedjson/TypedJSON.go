// Package typedjson decodes JSON objects of the form
//
//	{"Type": "<name>", "Config": {...}}
//
// where the Go type of Config is selected by the name in Type. It
// backs the JSON encoding of the solver and weight initializer
// configurations.
package typedjson

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Registry maps type names to the concrete (non-pointer) Go types of
// their configurations
type Registry map[string]reflect.Type

// Register adds the type of config to r under name
func (r Registry) Register(name string, config interface{}) {
	r[name] = reflect.TypeOf(config)
}

// Decode decodes data into the configuration type registered under the
// name stored in the typeField of data. The configuration is read from
// the configField of data. The decoded configuration is returned by
// value together with its type name.
func (r Registry) Decode(data []byte, typeField,
	configField string) (interface{}, string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, "", fmt.Errorf("decode: %v", err)
	}

	var name string
	raw, ok := fields[typeField]
	if !ok {
		return nil, "", fmt.Errorf("decode: missing field %q", typeField)
	}
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil, "", fmt.Errorf("decode: field %q: %v", typeField, err)
	}

	ty, ok := r[name]
	if !ok {
		return nil, "", fmt.Errorf("decode: unknown type %q", name)
	}
	config := reflect.New(ty)
	if raw, ok := fields[configField]; ok {
		if err := json.Unmarshal(raw, config.Interface()); err != nil {
			return nil, "", fmt.Errorf("decode: %v config: %v", name, err)
		}
	}
	return config.Elem().Interface(), name, nil
}
