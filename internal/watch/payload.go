package watch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// PayloadKind tells how a watch response body was shaped.
type PayloadKind int

const (
	// PayloadEmpty is a body with no records; the batch is a no-op.
	PayloadEmpty PayloadKind = iota
	// PayloadSingle is a body holding exactly one structured record.
	PayloadSingle
	// PayloadStream is a newline-delimited sequence of JSON records.
	PayloadStream
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadEmpty:
		return "empty"
	case PayloadSingle:
		return "single"
	case PayloadStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Payload is a watch response body resolved into records once, at ingestion.
// Downstream code iterates Records and never inspects the raw body again.
type Payload struct {
	Kind    PayloadKind
	Records [][]byte
}

// ParsePayload resolves a raw watch response body.
//
// A body that is one valid JSON document, even when pretty-printed over several
// lines, is a single record. Anything else is split on newlines and blank lines
// are dropped. Records are not validated here; decoding happens per record.
func ParsePayload(raw []byte) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{Kind: PayloadEmpty}
	}

	if json.Valid(trimmed) {
		return Payload{Kind: PayloadSingle, Records: [][]byte{trimmed}}
	}

	var records [][]byte
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		records = append(records, line)
	}
	return Payload{Kind: PayloadStream, Records: records}
}

// EventType is the action of a watch event.
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Bookmark EventType = "BOOKMARK"
	Error    EventType = "ERROR"
)

// Event is one decoded watch record.
type Event struct {
	Type   EventType
	Object *unstructured.Unstructured
}

type rawEvent struct {
	Type   EventType       `json:"type"`
	Object json.RawMessage `json:"object"`
}

// DecodeEvent parses one watch record.
func DecodeEvent(record []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(record, &raw); err != nil {
		return Event{}, fmt.Errorf("invalid watch record: %w", err)
	}
	if raw.Type == "" {
		return Event{}, fmt.Errorf("watch record has no type")
	}
	if len(raw.Object) == 0 || string(raw.Object) == "null" {
		return Event{}, fmt.Errorf("watch record of type %s has no object", raw.Type)
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON(raw.Object); err != nil {
		return Event{}, fmt.Errorf("invalid object in %s watch record: %w", raw.Type, err)
	}

	return Event{Type: raw.Type, Object: obj}, nil
}
