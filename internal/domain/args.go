package domain

import (
	"net/http"
	"sort"
)

// Params is the parsed query string of an incoming request.
type Params map[string]Value

// Args is a set of query-engine arguments. The Effective Query is an Args.
type Args map[string]Value

// Names of the arguments the pipeline itself reads or enforces.
const (
	ArgPostType                 = "post_type"
	ArgPostStatus               = "post_status"
	ArgPostsPerPage             = "posts_per_page"
	ArgSearch                   = "s"
	ArgExcludePasswordProtected = "exclude_password_protected"
	ArgLang                     = "lang"
)

// Fallbacks substituted when a restricted parameter carries a disallowed value.
const (
	FallbackPostType   = "post"
	FallbackPostStatus = "publish"
	WildcardAny        = "any"
)

// Keys returns the argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Text returns the scalar text of key, or "".
func (a Args) Text(key string) string {
	v, ok := a[key]
	if !ok {
		return ""
	}
	return v.Text()
}

// Int returns the integer value of key.
func (a Args) Int(key string) (int, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	return v.Int()
}

// Raw converts the arguments into plain Go types, e.g. for logging.
func (a Args) Raw() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v.Raw()
	}
	return out
}

// Merge returns defaults overlaid with over. Keys in over win.
func Merge(over, defaults Args) Args {
	out := defaults.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// ArgValue is the payload of the per-key value transform stage.
type ArgValue struct {
	Key   string
	Value Value
	Args  Args
}

// Request is the transport-independent view of an incoming call.
type Request struct {
	Params   Params
	Header   http.Header
	RemoteIP string
}

// HeaderValue returns the first value of a request header.
func (r *Request) HeaderValue(key string) string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(key)
}
