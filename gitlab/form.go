package gitlab

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/meysam81/go-bus/datetime"
)

const (
	// PageParam is the query parameter selecting a page.
	PageParam = "page"
	// PerPageParam is the query parameter selecting the page size.
	PerPageParam = "per_page"
)

// ErrMissingParam is wrapped by the error of a Form missing a required parameter.
var ErrMissingParam = errors.New("required parameter is missing")

// Form builds query or body parameters. Unset values (nil, nil pointers,
// empty strings and zero times) are skipped, so optional fields can be passed
// straight through. Dates are sent as ISO-8601 UTC, slices as repeated
// "name[]" values and maps as "name[key]".
type Form struct {
	values url.Values
	err    error
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{values: url.Values{}}
}

// WithParam adds an optional parameter.
func (f *Form) WithParam(name string, value any) *Form {
	return f.withParam(name, value, false)
}

// WithRequiredParam adds a parameter that must be set. A missing value is
// recorded and reported by Err.
func (f *Form) WithRequiredParam(name string, value any) *Form {
	return f.withParam(name, value, true)
}

func (f *Form) withParam(name string, value any, required bool) *Form {
	v := reflect.ValueOf(value)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem()
	}

	if !v.IsValid() || isUnset(v) {
		if required && f.err == nil {
			f.err = fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
		return f
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if s, ok := scalar(v.Index(i)); ok {
				f.values.Add(name+"[]", s)
			}
		}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		for _, k := range keys {
			if s, ok := scalar(v.MapIndex(k)); ok {
				f.values.Set(fmt.Sprintf("%s[%v]", name, k), s)
			}
		}
	default:
		if s, ok := scalar(v); ok {
			f.values.Set(name, s)
		} else if f.err == nil {
			f.err = fmt.Errorf("unsupported value type %s for parameter %s", v.Type(), name)
		}
	}
	return f
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.IsZero()
	}
	return false
}

// scalar formats a single value.
func scalar(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return datetime.FormatISO8601(t), true
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), true
	}
	return "", false
}

// Err returns the first error recorded while building the form.
func (f *Form) Err() error {
	return f.err
}

// Empty reports whether no parameter was added.
func (f *Form) Empty() bool {
	return len(f.values) == 0
}

// Get returns the first value of name.
func (f *Form) Get(name string) string {
	return f.values.Get(name)
}

// Values returns a copy of the parameters.
func (f *Form) Values() url.Values {
	out := make(url.Values, len(f.values))
	for k, v := range f.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Encode renders the parameters in URL-encoded form sorted by key.
func (f *Form) Encode() string {
	return f.values.Encode()
}

// clone copies the form so pagers can vary the page without touching the original.
func (f *Form) clone() *Form {
	return &Form{values: f.Values(), err: f.err}
}
