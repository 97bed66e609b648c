package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-script-cache/content"
)

// Key prefixes. Every key the Manager writes starts with one of these.
const (
	DetailPrefix   = "script:detail:"
	ListPrefix     = "script:list:"
	VersionsPrefix = "script:versions:"
	TagsPrefix     = "script:tags:"
)

// Stats keys. StatsKey holds the last published monitor snapshot and
// StatsResetKey the time statistics were last cleared.
const (
	StatsKey      = "script:cache:metrics"
	StatsResetKey = "script:cache:metrics:reset"
)

// DetailKey is the key of one item.
func DetailKey(id content.ItemID) string {
	return DetailPrefix + id.String()
}

// ListKey is the key of one list query. Parameter order never changes the key.
func ListKey(params map[string]any) string {
	return ListPrefix + Fingerprint(params)
}

// VersionsKey is the key of a title's version list. The title is used verbatim.
func VersionsKey(title string) string {
	return VersionsPrefix + title
}

// TagsKey is the key of an item's tag ids.
func TagsKey(id content.ItemID) string {
	return TagsPrefix + id.String()
}

// Fingerprint hashes the canonical form of params into a fixed-width hex string.
func Fingerprint(params map[string]any) string {
	return strconv.FormatUint(xxhash.Sum64String(Canonical(params)), 16)
}

// Canonical renders params as a deterministic string: map keys are sorted,
// nested values are expanded recursively and strings are quoted, so
// separators inside a value cannot mimic another parameter set.
func Canonical(params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}
	return canonicalValue(params)
}

func canonicalValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return canonicalValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return canonicalSequence("slice", rv)
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Array:
		if s, ok := v.(fmt.Stringer); ok {
			return strconv.Quote(s.String())
		}
		return canonicalSequence("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return canonicalMap(rv)
	case reflect.Struct:
		if s, ok := v.(fmt.Stringer); ok {
			return strconv.Quote(s.String())
		}
		return canonicalStruct(rv, rt)
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + rt.String()
	}
	return "json:" + string(data)
}

func canonicalSequence(kind string, rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = canonicalValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", kind, len(parts), strings.Join(parts, ","))
}

func canonicalMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, canonicalValue(iter.Key().Interface())+"="+canonicalValue(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func canonicalStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+canonicalValue(rv.Field(i).Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}
