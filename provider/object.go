package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/meysam81/go-bus/auth/oauth"
)

// object is a decoded JSON response. Numbers are kept as json.Number so that
// 64-bit ids survive the round trip.
type object map[string]any

// String returns the value at key rendered as a string. Missing and null
// values yield "".
func (o object) String(key string) string {
	return stringify(o[key])
}

// Int returns the value at key as an int, or 0.
func (o object) Int(key string) int {
	switch v := o[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Bool returns the value at key as a bool.
func (o object) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Object returns the nested object at key, or an empty object.
func (o object) Object(key string) object {
	if v, ok := o[key].(map[string]any); ok {
		return object(v)
	}
	if v, ok := o[key].(object); ok {
		return v
	}
	return object{}
}

// Array returns the array at key, or nil.
func (o object) Array(key string) []any {
	v, _ := o[key].([]any)
	return v
}

// Has reports whether key is present with a non-null value.
func (o object) Has(key string) bool {
	v, ok := o[key]
	return ok && v != nil
}

// Path walks nested objects, e.g. o.Path("data", "user").
func (o object) Path(keys ...string) object {
	cur := o
	for _, k := range keys {
		cur = cur.Object(k)
	}
	return cur
}

// First returns the first non-empty string among keys.
func (o object) First(keys ...string) string {
	for _, k := range keys {
		if s := o.String(k); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// decodeObject parses a provider response body. Besides plain JSON it accepts
// JSONP wrappers (QQ), Xiaomi's "&&&START&&&" prefix and form-encoded token
// responses.
func decodeObject(body []byte) (object, error) {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte("&&&START&&&"))

	if i := bytes.IndexByte(body, '('); i > 0 && bytes.HasPrefix(body, []byte("callback")) {
		if j := bytes.LastIndexByte(body, ')'); j > i {
			body = bytes.TrimSpace(body[i+1 : j])
		}
	}

	if len(body) > 0 && body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var o object
		if err := dec.Decode(&o); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return o, nil
	}

	if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 && strings.Contains(string(body), "=") {
		o := object{}
		for k := range values {
			o[k] = values.Get(k)
		}
		return o, nil
	}

	return nil, fmt.Errorf("unrecognized response: %.128s", body)
}

// checkResponse detects the common error markers providers use in response
// bodies and converts them into *oauth.Error.
func checkResponse(name string, o object) error {
	if o.Has("error") {
		if e := o.Object("error"); len(e) > 0 {
			code := e.First("code", "type", "error_code")
			return oauth.NewError(name, code, e.First("message", "msg", "error_msg"))
		}
		if code := o.String("error"); code != "" && code != "0" {
			return oauth.NewError(name, code, o.First("error_description", "error_msg", "msg", "message", "error"))
		}
	}
	if o.Has("errcode") {
		if code := o.String("errcode"); code != "0" {
			return oauth.NewError(name, code, o.First("errmsg", "msg"))
		}
	}
	if o.Has("error_code") {
		if code := o.String("error_code"); code != "" && code != "0" {
			return oauth.NewError(name, code, o.First("error_msg", "error_description", "description", "msg"))
		}
	}
	return nil
}

// checkCodeField treats a non-zero top level "code" as an error, for platforms
// (Feishu, Coding, Kujiale) that report success as code 0.
func checkCodeField(name, codeKey, msgKey string) func(object) error {
	return func(o object) error {
		if err := checkResponse(name, o); err != nil {
			return err
		}
		if o.Has(codeKey) {
			if code := o.String(codeKey); code != "0" && code != "" {
				return oauth.NewError(name, code, o.String(msgKey))
			}
		}
		return nil
	}
}
