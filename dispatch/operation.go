package dispatch

import (
	"net/http"
	"net/url"
)

// Query parameters recognized by the dispatcher.
const (
	ParamAdd    = "addtocache"
	ParamRemove = "removeitemfromcache"
	ParamList   = "getvaluesfromcache"
	ParamKey    = "cachekey"
	ParamType   = "type"
	ParamPrefix = "prefix"
)

// Response headers set on pass-through operations.
const (
	HeaderAdded   = "X-Cache-Added"
	HeaderRemoved = "X-Cache-Removed"
)

// OpKind identifies a cache operation carried by a request.
type OpKind int

const (
	OpNone OpKind = iota
	OpAdd
	OpRemove
	OpList
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpList:
		return "list"
	default:
		return "none"
	}
}

// operation is a recognized cache request.
type operation struct {
	kind   OpKind
	tag    string
	key    string
	prefix string
}

// parseOperation recognizes a cache operation from method and query.
// Requests that lack the trigger flag, the type or prefix parameter, or (for
// add and remove) the cachekey parameter are not cache operations.
func parseOperation(r *http.Request) (operation, bool) {
	q := r.URL.Query()

	var kind OpKind
	switch {
	case r.Method == http.MethodPost && q.Has(ParamAdd):
		kind = OpAdd
	case r.Method == http.MethodDelete && q.Has(ParamRemove):
		kind = OpRemove
	case r.Method == http.MethodGet && q.Has(ParamList):
		kind = OpList
	default:
		return operation{}, false
	}

	if !q.Has(ParamType) || !q.Has(ParamPrefix) {
		return operation{}, false
	}
	if kind != OpList && !q.Has(ParamKey) {
		return operation{}, false
	}

	return operation{
		kind:   kind,
		tag:    q.Get(ParamType),
		key:    q.Get(ParamKey),
		prefix: q.Get(ParamPrefix),
	}, true
}

// IsCacheOperation reports whether r is a request the dispatcher acts on.
func IsCacheOperation(r *http.Request) bool {
	_, ok := parseOperation(r)
	return ok
}

// Query builds the query string for a cache operation.
// An empty key is omitted; an empty prefix is sent as "prefix=" so the
// dispatcher applies its configured prefix.
func Query(kind OpKind, tag, prefix, key string) string {
	q := url.Values{}
	switch kind {
	case OpAdd:
		q.Set(ParamAdd, "")
	case OpRemove:
		q.Set(ParamRemove, "")
	case OpList:
		q.Set(ParamList, "")
	}
	q.Set(ParamType, tag)
	q.Set(ParamPrefix, prefix)
	if key != "" {
		q.Set(ParamKey, key)
	}
	return q.Encode()
}
