package htmlpage

import "strings"

// style is an inline style attribute as ordered declarations.
type style struct {
	props []string
	vals  map[string]string
}

func parseStyle(s string) *style {
	st := &style{vals: make(map[string]string)}
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		st.set(k, v)
	}
	return st
}

func (s *style) get(prop string) string { return s.vals[prop] }

// set writes prop; an empty value removes it, like assigning "" to a CSS
// property from script.
func (s *style) set(prop, val string) {
	if val == "" {
		if _, ok := s.vals[prop]; !ok {
			return
		}
		delete(s.vals, prop)
		for i, p := range s.props {
			if p == prop {
				s.props = append(s.props[:i], s.props[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := s.vals[prop]; !ok {
		s.props = append(s.props, prop)
	}
	s.vals[prop] = val
}

func (s *style) String() string {
	parts := make([]string, 0, len(s.props))
	for _, p := range s.props {
		parts = append(parts, p+": "+s.vals[p])
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}
