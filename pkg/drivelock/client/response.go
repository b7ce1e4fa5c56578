package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Response is the envelope wrapping every DriveLock API response. For list
// endpoints Data is a slice and Total is the server-side result count,
// independent of take and skip.
type Response[T any] struct {
	Data           T
	Total          *int
	AdditionalInfo any
	TimeStamp      string
	Extra          map[string]any
}

func (r *Response[T]) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if raw, ok := fields["data"]; ok {
		if err := json.Unmarshal(raw, &r.Data); err != nil {
			return fmt.Errorf("%w: data: %v", ErrMalformedResponse, err)
		}
	}

	if raw, ok := fields["total"]; ok {
		if err := json.Unmarshal(raw, &r.Total); err != nil {
			return fmt.Errorf("%w: total: %v", ErrMalformedResponse, err)
		}
	}

	if raw, ok := fields["additionalInfo"]; ok {
		_ = json.Unmarshal(raw, &r.AdditionalInfo)
	}

	if raw, ok := fields["timeStamp"]; ok {
		_ = json.Unmarshal(raw, &r.TimeStamp)
	}

	for key, raw := range fields {
		switch key {
		case "data", "total", "additionalInfo", "timeStamp":
			continue
		}

		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}

		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}

		r.Extra[key] = v
	}

	return nil
}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}

	out["data"] = r.Data

	if r.Total != nil {
		out["total"] = *r.Total
	}

	if r.AdditionalInfo != nil {
		out["additionalInfo"] = r.AdditionalInfo
	}

	if r.TimeStamp != "" {
		out["timeStamp"] = r.TimeStamp
	}

	return json.Marshal(out)
}

// Normalize turns any response body into a flat result object. success is
// false when the body carries a truthy error. data and total are kept even
// when null, every other top-level key only when set. Text bodies are
// returned under data, other non-object bodies under data with success.
func Normalize(body []byte) map[string]any {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{"success": true}
	}

	if !gjson.ValidBytes(body) {
		return map[string]any{"data": string(body)}
	}

	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.Type == gjson.String:
		return map[string]any{"data": parsed.Str}
	case !parsed.IsObject():
		return map[string]any{"success": true, "data": parsed.Value()}
	}

	result := map[string]any{"success": !truthy(parsed.Get("error"))}

	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if value.Type == gjson.Null && name != "data" && name != "total" {
			return true
		}

		result[name] = value.Value()

		return true
	})

	return result
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return v.Exists()
	}
}
