package events

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawEvent is an event as returned by the upstream events API. It is persisted verbatim in the
// retained window and never mutated after fetch.
type RawEvent struct {
	ID         string                 `json:"id"`
	Timestamp  string                 `json:"timestamp"`
	Event      string                 `json:"event"`
	DistinctID string                 `json:"distinct_id,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Person     *PersonRef             `json:"person,omitempty"`
}

// PersonRef is the person embedded in an event
type PersonRef struct {
	ID         FlexibleID             `json:"id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Person is an entry of the persons snapshot
type Person struct {
	ID          FlexibleID             `json:"id"`
	DistinctIDs []string               `json:"distinct_ids,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
}

// FlexibleID accepts identifiers encoded either as JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// Time parses the event timestamp. Unparseable timestamps yield the zero time.
func (e RawEvent) Time() time.Time {
	return ParseTimestamp(e.Timestamp)
}

// PersonID returns the embedded person's identifier, if any
func (e RawEvent) PersonID() string {
	if e.Person == nil {
		return ""
	}
	return string(e.Person.ID)
}

// IdentityKey returns the key used to drop duplicate deliveries of the same event.
func (e RawEvent) IdentityKey() string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return strings.Join([]string{"tuple", e.Event, e.Timestamp, e.PersonID()}, "|")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the ISO-8601 variants emitted upstream.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
