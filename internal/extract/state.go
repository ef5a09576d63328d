package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// state is the normalized client cache: objects keyed by "Type:id", linked
// through {"__ref": key} values.
type state map[string]json.RawMessage

type ref struct {
	Ref string `json:"__ref"`
}

func (s state) object(key string) (map[string]json.RawMessage, bool) {
	raw, ok := s[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// deref follows the reference stored under field of node.
func (s state) deref(node map[string]json.RawMessage, field string) (map[string]json.RawMessage, bool) {
	raw, ok := node[field]
	if !ok || isNull(raw) {
		return nil, false
	}
	var r ref
	if err := json.Unmarshal(raw, &r); err != nil || r.Ref == "" {
		return nil, false
	}
	return s.object(r.Ref)
}

// images resolves the image edge list. Edges that do not resolve are skipped.
func (s state) images(node map[string]json.RawMessage) []ad.Image {
	raw, ok := node["images"]
	if !ok || isNull(raw) {
		return nil
	}
	var conn struct {
		Edges []struct {
			Node ref `json:"node"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(raw, &conn); err != nil {
		return nil
	}
	out := make([]ad.Image, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		img, ok := s.object(edge.Node.Ref)
		if !ok {
			continue
		}
		var urls struct {
			High  string `json:"high"`
			Thumb string `json:"thumb"`
		}
		if rawURLs, ok := img["urls"]; !ok || json.Unmarshal(rawURLs, &urls) != nil {
			continue
		}
		out = append(out, ad.Image{High: urls.High, Thumb: urls.Thumb})
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// flexString accepts a JSON string or number.
func flexString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// flexInt accepts an integer encoded as a JSON number or string.
func flexInt(raw json.RawMessage) (int64, bool) {
	s, ok := flexString(raw)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func flexIntAsInt(raw json.RawMessage) (int, bool) {
	n, ok := flexInt(raw)
	return int(n), ok
}

// flexFloat accepts a number encoded as a JSON number or string.
func flexFloat(raw json.RawMessage) (float64, bool) {
	s, ok := flexString(raw)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
