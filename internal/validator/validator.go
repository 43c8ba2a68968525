// Package validator checks decoded JSON records against a fixed field/kind contract.
package validator

import (
	"encoding/json"
	"strings"
)

// Kind classifies a decoded JSON value.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNull
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindNull:    "null",
	KindBool:    "bool",
	KindInteger: "integer",
	KindFloat:   "float",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// KindSet is a set of accepted kinds.
type KindSet uint16

// Kinds builds a KindSet.
func Kinds(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// KindOf classifies v as produced by encoding/json (with or without UseNumber)
// or by structpb's AsInterface.
func KindOf(v any) Kind {
	switch val := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number:
		if strings.ContainsAny(val.String(), ".eE") {
			return KindFloat
		}
		return KindInteger
	case float32, float64:
		return KindFloat
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindUnknown
	}
}

// Rule requires Field to be present with one of the Accepts kinds.
type Rule struct {
	Field   string
	Accepts KindSet
}

// Schema is an ordered set of rules. Fields not named by a rule are ignored.
type Schema []Rule

// DefaultSchema is the record contract served by the endpoint:
// num is an integer or float, text is a string.
var DefaultSchema = Schema{
	{Field: "num", Accepts: Kinds(KindInteger, KindFloat)},
	{Field: "text", Accepts: Kinds(KindString)},
}

// Validate reports whether v is an object satisfying every rule.
func (s Schema) Validate(v any) bool {
	record, ok := v.(map[string]any)
	if !ok {
		return false
	}

	for _, rule := range s {
		field, present := record[rule.Field]
		if !present || !rule.Accepts.Has(KindOf(field)) {
			return false
		}
	}

	return true
}

// Count validates every item and tallies the results.
// valid+invalid always equals len(items).
func (s Schema) Count(items []any) (valid, invalid int) {
	for _, item := range items {
		if s.Validate(item) {
			valid++
		}
	}
	return valid, len(items) - valid
}
