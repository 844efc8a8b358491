package ua

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IndexRange is a parsed OPC UA index range: a sequence of per-dimension
// [low, high] bounds (Part 4, 7.22). An empty IndexRange selects the whole
// value and always overlaps.
type IndexRange []dimension

type dimension struct {
	low, high int // high == low when the dimension selects a single index
}

// ParseIndexRange parses the "i" / "i:j" / "i:j,k:l,..." grammar. An empty
// string yields an empty IndexRange (whole value).
func ParseIndexRange(s string) (IndexRange, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	dims := make(IndexRange, 0, len(parts))
	for _, p := range parts {
		bounds := strings.SplitN(p, ":", 2)
		low, err := strconv.Atoi(bounds[0])
		if err != nil || low < 0 {
			return nil, errors.Errorf("invalid index range %q", s)
		}
		high := low
		if len(bounds) == 2 {
			high, err = strconv.Atoi(bounds[1])
			if err != nil || high < low {
				return nil, errors.Errorf("invalid index range %q", s)
			}
		}
		dims = append(dims, dimension{low: low, high: high})
	}
	return dims, nil
}

// Overlaps reports whether two index ranges refer to any common index.
// Two empty ranges (whole value) always overlap. A mismatch in the number
// of dimensions never overlaps.
func (r IndexRange) Overlaps(other IndexRange) bool {
	if len(r) == 0 || len(other) == 0 {
		return true
	}
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i].high < other[i].low || other[i].high < r[i].low {
			return false
		}
	}
	return true
}

// Apply narrows value to the slice selected by r. If r is empty, value is
// returned unchanged. Only one-dimensional ranges over slices/arrays are
// supported, matching the shapes the demo node and the filter layer deal
// in; higher-dimensional ranges are accepted by ParseIndexRange for
// overlap testing but Apply returns the value unchanged for them, since
// this engine never holds matrix-valued variants.
func (r IndexRange) Apply(value Variant) (Variant, error) {
	if len(r) == 0 || value == nil {
		return value, nil
	}
	if len(r) > 1 {
		return value, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, errors.Errorf("index range %v on non-array value", r)
	}
	dim := r[0]
	if dim.high >= v.Len() {
		return nil, errors.Errorf("index range %v out of bounds for length %d", r, v.Len())
	}
	if v.Kind() == reflect.Array {
		// reflect can only slice an addressable array.
		addressable := reflect.New(v.Type()).Elem()
		addressable.Set(v)
		v = addressable
	}
	sliced := v.Slice(dim.low, dim.high+1)
	return sliced.Interface(), nil
}
