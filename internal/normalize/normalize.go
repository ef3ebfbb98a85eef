// Package normalize converts the backend's inconsistent response
// envelopes into the single canonical shape the synchronizers consume.
//
// The backend wraps listing payloads differently across endpoints and
// versions. Rather than sniffing shapes ad hoc, a fixed ordered set of
// matchers is tried; anything unrecognized degrades to an empty result.
package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"boltvisa/internal/models"
)

// Result is the canonical listing shape.
type Result struct {
	Items      []json.RawMessage
	Pagination models.Pagination
	// Matched reports whether any known shape applied. When false the
	// payload was unrecognized and Items is empty.
	Matched bool
	// Shape names the matcher that applied, for logging.
	Shape string
}

// List normalizes a listing payload. collection is the endpoint's own
// name for its records ("applications", "users", "expenses"). page and
// limit are the requested paging values, used when the payload carries
// none. Pure and total: never fails.
func List(payload []byte, collection string, page, limit int) Result {
	res := Result{
		Items:      []json.RawMessage{},
		Pagination: models.Pagination{Page: page, Limit: limit},
	}

	root := gjson.ParseBytes(payload)
	items, pag, shape, ok := matchList(root, collection)
	if !ok {
		res.Pagination.Recompute()
		return res
	}

	res.Matched = true
	res.Shape = shape
	for _, el := range items.Array() {
		res.Items = append(res.Items, json.RawMessage(el.Raw))
	}

	total := len(res.Items)
	if pag.Exists() && pag.IsObject() {
		if v := pag.Get("total"); v.Exists() {
			total = int(v.Int())
		}
		if v := pag.Get("page"); v.Int() > 0 {
			res.Pagination.Page = int(v.Int())
		}
		if v := pag.Get("limit"); v.Int() > 0 {
			res.Pagination.Limit = int(v.Int())
		}
	} else if v := root.Get("total"); v.Exists() {
		total = int(v.Int())
	} else if v := root.Get("data.total"); v.Exists() {
		total = int(v.Int())
	}
	res.Pagination.Total = total

	if pag.Exists() && pag.Get("pages").Int() > 0 {
		res.Pagination.Pages = int(pag.Get("pages").Int())
	} else {
		res.Pagination.Recompute()
	}

	return res
}

// matchList tries the known envelope shapes in priority order.
func matchList(root gjson.Result, collection string) (items, pag gjson.Result, shape string, ok bool) {
	if root.IsArray() {
		return root, gjson.Result{}, "array", true
	}
	if !root.IsObject() {
		return gjson.Result{}, gjson.Result{}, "", false
	}

	if d := root.Get("data"); d.IsArray() {
		return d, gjson.Result{}, "data", true
	}
	if d := root.Get("data.items"); d.IsArray() {
		return d, root.Get("data.pagination"), "data.items", true
	}
	if collection != "" {
		if d := root.Get("data." + collection); d.IsArray() {
			return d, root.Get("data.pagination"), "data." + collection, true
		}
		if d := root.Get(collection); d.IsArray() {
			return d, root.Get("pagination"), collection, true
		}
	}
	if d := root.Get("data.data"); d.IsArray() {
		return d, gjson.Result{}, "data.data", true
	}

	return gjson.Result{}, gjson.Result{}, "", false
}

// Item normalizes a single-record payload: either `{data: {...}}` or a
// bare object. Returns false for anything else.
func Item(payload []byte) (json.RawMessage, bool) {
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, false
	}
	if d := root.Get("data"); d.IsObject() {
		return json.RawMessage(d.Raw), true
	}
	return json.RawMessage(root.Raw), true
}

// Success reports the payload's own success flag, defaulting to true
// when the backend sent none.
func Success(payload []byte) bool {
	v := gjson.GetBytes(payload, "success")
	if !v.Exists() {
		return true
	}
	return v.Bool()
}
