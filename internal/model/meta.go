package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Meta is an open-ended metadata map on nodes and edges, restricted to a
// small set of value kinds so serialization stays precise.
type Meta map[string]MetaValue

// MetaKind discriminates the value stored in a MetaValue.
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaNumber
	MetaBool
	MetaStringList
)

// MetaValue is a typed variant: exactly one of Str, Num, Bool, or List is
// meaningful, per Kind. It marshals as the bare JSON value.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

func MetaStr(v string) MetaValue       { return MetaValue{Kind: MetaString, Str: v} }
func MetaNum(v float64) MetaValue      { return MetaValue{Kind: MetaNumber, Num: v} }
func MetaFlag(v bool) MetaValue        { return MetaValue{Kind: MetaBool, Bool: v} }
func MetaStrings(v []string) MetaValue { return MetaValue{Kind: MetaStringList, List: v} }

func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaBool:
		return json.Marshal(v.Bool)
	case MetaStringList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("unknown meta kind %d", v.Kind)
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = MetaStr(s)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = MetaFlag(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = MetaNum(n)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = MetaStrings(list)
		return nil
	}
	return fmt.Errorf("meta value must be string, number, bool, or string list: %s", data)
}

// String renders the value for display and relevance matching.
func (v MetaValue) String() string {
	switch v.Kind {
	case MetaString:
		return v.Str
	case MetaNumber:
		return fmt.Sprintf("%g", v.Num)
	case MetaBool:
		return fmt.Sprintf("%t", v.Bool)
	case MetaStringList:
		out := ""
		for i, s := range v.List {
			if i > 0 {
				out += ","
			}
			out += s
		}
		return out
	}
	return ""
}

// Keys returns the meta keys in sorted order, for deterministic rendering.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
