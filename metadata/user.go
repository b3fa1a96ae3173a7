package metadata

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/nguyengg/xpak/format"
)

// ParseUser parses user-supplied metadata which must be a JSON object, given either as raw JSON text or as the
// standard base64 encoding of the JSON text.
//
// Input "looks like base64" if its length is a multiple of 4 and it only contains characters of the standard base64
// alphabet. Such input is decoded first; if the decoded bytes are a JSON object, that object is used. Otherwise the
// raw input must itself be a JSON object. The two failure modes are kept apart:
//   - format.KindNotAnObject: base64-shaped input that did not yield an object, or valid JSON that is not an object.
//   - format.KindInvalidJSON: input that is not JSON at all.
//
// Text that is not JSON is never accepted as metadata.
func ParseUser(s string) (map[string]Value, error) {
	s = strings.TrimSpace(s)

	if looksBase64(s) {
		if data, err := base64.StdEncoding.DecodeString(s); err == nil && utf8.Valid(data) {
			if m, err := parseObject(data); err == nil {
				return m, nil
			}
		}

		m, err := parseObject([]byte(s))
		if err == nil {
			return m, nil
		}

		var e *format.Error
		if errors.As(err, &e) && e.Kind == format.KindInvalidJSON {
			e.Kind = format.KindNotAnObject
		}
		return nil, err
	}

	return parseObject([]byte(s))
}

func parseObject(data []byte) (map[string]Value, error) {
	if err := requireObject(data); err != nil {
		return nil, err
	}

	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &format.Error{Kind: format.KindInvalidJSON, Offset: -1, Err: err}
	}

	return m, nil
}

func looksBase64(s string) bool {
	if len(s) == 0 || len(s)%4 != 0 {
		return false
	}

	for _, c := range s {
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9', c == '+', c == '/', c == '=':
		default:
			return false
		}
	}

	return true
}
