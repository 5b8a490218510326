package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	pstrings "intakedesk/pkg/platform/strings"
)

// contactShape tags which historical encoding a stored preferred-contact value used.
type contactShape int

const (
	shapeAbsent contactShape = iota
	shapeList
	shapeJSONArrayString
	shapeBraceList
	shapeBareString
)

func (s contactShape) String() string {
	switch s {
	case shapeList:
		return "list"
	case shapeJSONArrayString:
		return "json_array_string"
	case shapeBraceList:
		return "brace_list"
	case shapeBareString:
		return "bare_string"
	default:
		return "absent"
	}
}

type decodedContact struct {
	shape  contactShape
	values []string
}

// contactDecoders are tried in priority order; the first that claims the value wins.
var contactDecoders = []func(raw json.RawMessage, text string) (decodedContact, bool){
	decodeContactList,
	decodeJSONArrayString,
	decodeBraceList,
	decodeBareString,
}

// PreferredContact decodes a stored preferred-contact value into a list of
// non-empty method names. It accepts a JSON list, a string holding a JSON
// array, a "{a, b}" brace list, or a bare string. Anything else, including
// null, yields an empty list. Feeding the marshalled result back in returns
// the same list.
func PreferredContact(raw json.RawMessage) []string {
	return decodePreferredContact(raw).values
}

func decodePreferredContact(raw json.RawMessage) decodedContact {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decodedContact{shape: shapeAbsent, values: []string{}}
	}

	var text string
	isString := raw[0] == '"' && json.Unmarshal(raw, &text) == nil
	if raw[0] != '[' && !isString {
		return decodedContact{shape: shapeAbsent, values: []string{}}
	}
	text = strings.TrimSpace(text)

	for _, decode := range contactDecoders {
		if d, ok := decode(raw, text); ok {
			d.values = pstrings.DedupeAndTrim(d.values)
			if d.values == nil {
				d.values = []string{}
			}
			return d
		}
	}
	return decodedContact{shape: shapeAbsent, values: []string{}}
}

func decodeContactList(raw json.RawMessage, _ string) (decodedContact, bool) {
	if raw[0] != '[' {
		return decodedContact{}, false
	}
	return decodedContact{shape: shapeList, values: stringElements(raw)}, true
}

func decodeJSONArrayString(raw json.RawMessage, text string) (decodedContact, bool) {
	if raw[0] != '"' || !strings.HasPrefix(text, "[") {
		return decodedContact{}, false
	}
	var probe []json.RawMessage
	if json.Unmarshal([]byte(text), &probe) != nil {
		return decodedContact{}, false
	}
	return decodedContact{shape: shapeJSONArrayString, values: stringElements([]byte(text))}, true
}

func decodeBraceList(raw json.RawMessage, text string) (decodedContact, bool) {
	if raw[0] != '"' || !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return decodedContact{}, false
	}
	inner := text[1 : len(text)-1]
	return decodedContact{shape: shapeBraceList, values: pstrings.SplitList(inner, ",")}, true
}

func decodeBareString(raw json.RawMessage, text string) (decodedContact, bool) {
	if raw[0] != '"' {
		return decodedContact{}, false
	}
	if text == "" {
		return decodedContact{shape: shapeBareString, values: []string{}}, true
	}
	return decodedContact{shape: shapeBareString, values: []string{text}}, true
}

// stringElements returns the string members of a JSON array, skipping other types.
func stringElements(arr []byte) []string {
	var elems []json.RawMessage
	if json.Unmarshal(arr, &elems) != nil {
		return []string{}
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		var s string
		if json.Unmarshal(e, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// EncodePreferredContact is the write-side encoding: a JSON string holding the
// single selected method. Empty input stores NULL.
func EncodePreferredContact(method string) []byte {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil
	}
	out, _ := json.Marshal(method)
	return out
}
