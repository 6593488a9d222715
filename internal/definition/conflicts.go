package definition

import (
	"bytes"
	"encoding/json"
)

// Conflict lists every definition that declares Alias.
type Conflict struct {
	Alias       string       `json:"alias"`
	Definitions []Definition `json:"definitions"`
}

// ConflictReport is an ordered alias -> definitions mapping holding only
// aliases declared by two or more definitions.
type ConflictReport []Conflict

// FindDuplicateAliases groups definitions by literal alias and keeps the
// aliases claimed more than once. Aliases appear in the order they first
// became conflicting; definitions in encounter order. A definition that
// repeats an alias in its own list is counted once for it.
func FindDuplicateAliases(definitions []Definition) ConflictReport {
	owners := make(map[string][]int)
	order := make([]string, 0)

	for i, def := range definitions {
		for _, alias := range def.Aliases {
			claimed := owners[alias]
			if len(claimed) > 0 && claimed[len(claimed)-1] == i {
				continue
			}
			owners[alias] = append(claimed, i)
			if len(owners[alias]) == 2 {
				order = append(order, alias)
			}
		}
	}

	report := make(ConflictReport, 0, len(order))
	for _, alias := range order {
		indexes := owners[alias]
		defs := make([]Definition, 0, len(indexes))
		for _, idx := range indexes {
			defs = append(defs, definitions[idx])
		}
		report = append(report, Conflict{Alias: alias, Definitions: defs})
	}
	return report
}

// Get returns the definitions that declare alias, if it is conflicting.
func (r ConflictReport) Get(alias string) ([]Definition, bool) {
	for _, conflict := range r {
		if conflict.Alias == alias {
			return conflict.Definitions, true
		}
	}
	return nil, false
}

// Aliases returns the conflicting aliases in report order.
func (r ConflictReport) Aliases() []string {
	out := make([]string, 0, len(r))
	for _, conflict := range r {
		out = append(out, conflict.Alias)
	}
	return out
}

// MarshalJSON encodes the report as an object keyed by alias, keeping
// report order.
func (r ConflictReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, conflict := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(conflict.Alias)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(conflict.Definitions)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
