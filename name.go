package funcscope

import "strings"

// UnknownName is the name of a function without name symbols.
const UnknownName = "<unknown>"

// Name returns the display name of the function: the canonical name when
// one is designated, otherwise the first name symbol followed by its aliases.
func (f *Function) Name() string {
	if f.canonical != nil {
		return f.canonical.Name
	}
	switch len(f.nameSymbols) {
	case 0:
		return UnknownName
	case 1:
		return f.nameSymbols[0].Name
	}

	var b strings.Builder
	b.WriteString(f.nameSymbols[0].Name)
	b.WriteString(" (a.k.a. ")
	for i, s := range f.nameSymbols[1:] {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Name)
	}
	b.WriteByte(')')
	return b.String()
}

// LongName returns the primary name followed by every other name symbol
// as an alias. Unlike Name, aliases are listed even when a canonical name
// symbol is designated.
func (f *Function) LongName() string {
	primary := f.Name()
	if f.canonical == nil {
		return primary
	}

	var aliases []string
	for _, s := range f.nameSymbols {
		if s != f.canonical {
			aliases = append(aliases, s.Name)
		}
	}
	if len(aliases) == 0 {
		return primary
	}
	return primary + " (a.k.a. " + strings.Join(aliases, ", ") + ")"
}

// Names returns the names of all name symbols, in order.
func (f *Function) Names() []string {
	names := make([]string, 0, len(f.nameSymbols))
	for _, s := range f.nameSymbols {
		names = append(names, s.Name)
	}
	return names
}
