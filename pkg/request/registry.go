package request

import "net/http"

// locations tracks the dynamic and calculated descriptors configured per
// location. Values are replaced, never mutated in place, so a built template
// can share them with every call.
type locations struct {
	dynamics []DynamicProp
	calcs    []CalculatedProp
}

// setForLocation drops every descriptor tagged with loc and appends the new
// ones tagged with loc. Descriptors of other locations keep their order.
func (l locations) setForLocation(loc Location, dynamics []DynamicProp, calcs []CalculatedProp) locations {
	next := locations{
		dynamics: make([]DynamicProp, 0, len(l.dynamics)+len(dynamics)),
		calcs:    make([]CalculatedProp, 0, len(l.calcs)+len(calcs)),
	}
	for _, d := range l.dynamics {
		if d.Location != loc {
			next.dynamics = append(next.dynamics, d)
		}
	}
	for _, d := range dynamics {
		d.Location = loc
		next.dynamics = append(next.dynamics, d)
	}
	for _, c := range l.calcs {
		if c.Location != loc {
			next.calcs = append(next.calcs, c)
		}
	}
	for _, c := range calcs {
		c.Location = loc
		next.calcs = append(next.calcs, c)
	}
	return next
}

func (l locations) dynamicsAt(loc Location) []DynamicProp {
	var out []DynamicProp
	for _, d := range l.dynamics {
		if d.Location == loc {
			out = append(out, d)
		}
	}
	return out
}

func (l locations) calcsAt(loc Location) []CalculatedProp {
	var out []CalculatedProp
	for _, c := range l.calcs {
		if c.Location == loc {
			out = append(out, c)
		}
	}
	return out
}

// resolveDynamics returns the values of the dynamic properties at loc. Caller
// params win over defaults; optional properties with neither are omitted.
func (l locations) resolveDynamics(loc Location, in Input) (map[string]any, error) {
	out := map[string]any{}
	for _, d := range l.dynamicsAt(loc) {
		if v, ok := in.lookup(d.Name); ok {
			out[d.Name] = v
			continue
		}
		if d.Default != nil {
			out[d.Name] = d.Default
			continue
		}
		if d.Required {
			return nil, newConfigError(CodeMissingRequired, http.StatusBadRequest,
				"the %s property %q is required but was neither passed in nor given a default", loc, d.Name)
		}
	}
	return out, nil
}
