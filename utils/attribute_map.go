package utils

import (
	"github.com/spf13/cast"
)

// AttributeMap is a free-form set of model specific attributes, as read from JSON.
type AttributeMap map[string]interface{}

// Has reports whether name is set.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the attribute as a string, or "" when unset or not coercible.
func (am AttributeMap) String(name string) string {
	return cast.ToString(am[name])
}

// Int returns the attribute as an int, or def when unset or not coercible. JSON numbers decode as
// float64, so those are accepted too.
func (am AttributeMap) Int(name string, def int) int {
	x, has := am[name]
	if !has {
		return def
	}
	v, err := cast.ToIntE(x)
	if err != nil {
		return def
	}
	return v
}

// Bool returns the attribute as a bool, or def when unset or not coercible.
func (am AttributeMap) Bool(name string, def bool) bool {
	x, has := am[name]
	if !has {
		return def
	}
	v, err := cast.ToBoolE(x)
	if err != nil {
		return def
	}
	return v
}
