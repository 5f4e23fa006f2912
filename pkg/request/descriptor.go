package request

import (
	"fmt"
	"net/http"
	"reflect"
)

// Descriptor is a deferred property: either a DynamicProp or a CalculatedProp.
// The set is closed; no other type satisfies it.
type Descriptor interface {
	Prop() string
	isDescriptor()
}

// DynamicProp is filled at call time from the caller's params, falling back to
// Default. A required property with neither fails resolution.
type DynamicProp struct {
	Name     string
	Location Location
	Required bool
	// Default is used when the caller does not supply the property; nil means none.
	Default any
}

func (d DynamicProp) Prop() string { return d.Name }
func (DynamicProp) isDescriptor()  {}

// Context is the request state a calculation sees: everything resolved from
// static and dynamic values, before any calculation has run.
type Context struct {
	Method     string
	URL        string
	Headers    map[string]string
	Query      map[string]any
	Body       any
	BodyType   BodyType
	MockConfig MockConfig
}

// CalcFunc computes a property value from the caller input and the resolved
// request context.
type CalcFunc func(in Input, req Context) (any, error)

// CalculatedProp is computed after every static and dynamic value is resolved.
type CalculatedProp struct {
	Name     string
	Location Location
	Compute  CalcFunc
}

func (c CalculatedProp) Prop() string { return c.Name }
func (CalculatedProp) isDescriptor()  {}

// Deferred produces a Descriptor for the property name it is configured under.
type Deferred func(prop string) Descriptor

// DynamicOption tunes a dynamic property.
type DynamicOption func(*DynamicProp)

// WithDefault sets the value used when the caller omits the property.
func WithDefault(v any) DynamicOption {
	return func(d *DynamicProp) { d.Default = v }
}

// Required makes resolution fail when neither input nor default is present.
func Required() DynamicOption {
	return func(d *DynamicProp) { d.Required = true }
}

// Dynamic declares a property filled from caller input at call time.
func Dynamic(opts ...DynamicOption) Deferred {
	return func(prop string) Descriptor {
		d := DynamicProp{Name: prop}
		for _, opt := range opts {
			opt(&d)
		}
		return d
	}
}

// Calc declares a property computed from the final request context.
func Calc(fn CalcFunc) Deferred {
	return func(prop string) Descriptor {
		return CalculatedProp{Name: prop, Compute: fn}
	}
}

// Properties maps a property name to a static value or a Deferred.
type Properties map[string]any

// classified is the result of splitting Properties for one location.
type classified struct {
	static   map[string]any
	dynamics []DynamicProp
	calcs    []CalculatedProp
}

// classify separates static values from deferred ones. Deferred entries are
// invoked once with their property name, in sorted key order, so the resulting
// descriptor order is stable across calls.
func classify(props Properties) (classified, error) {
	out := classified{static: map[string]any{}}
	for _, name := range sortedKeys(props) {
		value := props[name]

		var desc Descriptor
		switch vt := value.(type) {
		case Deferred:
			desc = vt(name)
		case func(string) Descriptor:
			desc = vt(name)
		case DynamicProp:
			desc = vt
		case CalculatedProp:
			desc = vt
		default:
			if value != nil && reflect.TypeOf(value).Kind() == reflect.Func {
				return classified{}, newConfigError(CodeInvalidDescriptor, http.StatusBadRequest,
					"property %q is a %T; only Dynamic(...) and Calc(...) may defer a value", name, value)
			}
			out.static[name] = value
			continue
		}

		switch d := desc.(type) {
		case DynamicProp:
			if d.Name == "" {
				d.Name = name
			}
			out.dynamics = append(out.dynamics, d)
		case CalculatedProp:
			if d.Name == "" {
				d.Name = name
			}
			if d.Compute == nil {
				return classified{}, newConfigError(CodeInvalidDescriptor, http.StatusBadRequest,
					"calculated property %q has no compute function", name)
			}
			out.calcs = append(out.calcs, d)
		default:
			return classified{}, newConfigError(CodeInvalidDescriptor, http.StatusBadRequest,
				"property %q produced %s instead of a dynamic or calculated descriptor", name, describeNil(desc))
		}
	}
	return out, nil
}

func describeNil(d Descriptor) string {
	if d == nil {
		return "nothing"
	}
	return fmt.Sprintf("%T", d)
}
