package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Content types written by the relay.
const (
	ContentTypeJSONUTF8 = "application/json; charset=utf-8"
	ContentTypeJSON     = "application/json"
	ContentTypeText     = "text/plain; charset=utf-8"
)

const displayNameKey = "displayName"

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("merchant session payload is not a JSON object")

type sessionMember struct {
	key   string
	value json.RawMessage
}

// MerchantSession is the opaque object returned by Apple's validation
// service. Members are kept in their original order and passed through
// verbatim. DisplayName is held apart and never serialized.
type MerchantSession struct {
	// DisplayName is the upstream displayName value, nil when absent.
	// A non-string value is kept as its JSON text.
	DisplayName *string

	members []sessionMember
}

// ParseMerchantSession decodes an upstream payload.
func ParseMerchantSession(data []byte) (*MerchantSession, error) {
	s := &MerchantSession{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler. When a key repeats, the last
// value wins and keeps the position of the first occurrence.
func (s *MerchantSession) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	var (
		members []sessionMember
		index   = make(map[string]int)
		name    *string
	)

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in merchant session", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}

		if key == displayNameKey {
			text := displayNameText(value)
			name = &text
			continue
		}

		if i, dup := index[key]; dup {
			members[i].value = value
			continue
		}
		index[key] = len(members)
		members = append(members, sessionMember{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	s.members = members
	s.DisplayName = name
	return nil
}

func displayNameText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

// MarshalJSON implements json.Marshaler. The output is compact and
// never contains displayName.
func (s MerchantSession) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, m := range s.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(m.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Keys returns the member names in order, excluding displayName.
func (s *MerchantSession) Keys() []string {
	keys := make([]string, 0, len(s.members))
	for _, m := range s.members {
		keys = append(keys, m.key)
	}
	return keys
}

// Field returns the raw JSON value of a member.
func (s *MerchantSession) Field(key string) (json.RawMessage, bool) {
	for _, m := range s.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// SessionIdentifier returns merchantSessionIdentifier when it is a string.
func (s *MerchantSession) SessionIdentifier() string {
	raw, ok := s.Field("merchantSessionIdentifier")
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}

// RelayBody is the response written back to the browser.
type RelayBody struct {
	// Data is empty when nothing should be written.
	Data        []byte
	ContentType string
	// DisplayNameStripped is set when an upstream displayName was removed.
	DisplayNameStripped bool
	// SessionIdentifier and Fields describe an object payload for logging.
	SessionIdentifier string
	Fields            []string
}

// TransformResponse prepares an upstream body for the browser. A JSON
// object loses its displayName and is re-serialized compactly. Other
// JSON values and non-JSON text are passed through unchanged. Empty and
// null bodies yield an empty RelayBody.
func TransformResponse(body []byte) RelayBody {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return RelayBody{}
	}

	if !json.Valid(trimmed) {
		return RelayBody{Data: body, ContentType: ContentTypeText}
	}

	s, err := ParseMerchantSession(trimmed)
	if err != nil {
		return RelayBody{Data: body, ContentType: ContentTypeJSON}
	}

	data, err := s.MarshalJSON()
	if err != nil {
		return RelayBody{Data: body, ContentType: ContentTypeJSON}
	}

	return RelayBody{
		Data:                data,
		ContentType:         ContentTypeJSONUTF8,
		DisplayNameStripped: s.DisplayName != nil,
		SessionIdentifier:   s.SessionIdentifier(),
		Fields:              s.Keys(),
	}
}
