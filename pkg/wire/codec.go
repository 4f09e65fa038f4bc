package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/indigo-protocol/indigo-go/pkg/model"
)

// Codec errors. Both mark a single bad message on an otherwise intact
// stream; the caller may drop the message and keep reading.
var (
	ErrUnknownMessage = errors.New("unknown message tag")
	ErrMalformed      = errors.New("malformed message")
)

// Decoder splits a stream of concatenated JSON objects into Messages.
type Decoder struct {
	dec *json.Decoder
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next message on the stream. ErrUnknownMessage and
// ErrMalformed are recoverable: the offending object has been consumed
// and Next may be called again. Any other error (including io.EOF) is
// terminal for the stream.
func (d *Decoder) Next() (*Message, error) {
	var raw map[string]json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("%w: %d top-level tags", ErrMalformed, len(raw))
	}

	for tag, body := range raw {
		return decodeTagged(tag, body)
	}
	return nil, ErrMalformed // unreachable
}

func decodeTagged(tag string, body json.RawMessage) (*Message, error) {
	switch {
	case strings.HasPrefix(tag, "def"):
		kind, err := vectorKind(tag, "def")
		if err != nil {
			return nil, err
		}
		v := &DefVector{Kind: kind}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{Def: v}, nil

	case strings.HasPrefix(tag, "set"):
		kind, err := vectorKind(tag, "set")
		if err != nil {
			return nil, err
		}
		v := &SetVector{Kind: kind}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{Set: v}, nil

	case tag == "deleteProperty":
		v := &DeleteProperty{}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{Delete: v}, nil

	case tag == "message":
		v := &Broadcast{}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{Broadcast: v}, nil

	case tag == "getProperties":
		v := &GetProperties{}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{GetProperties: v}, nil

	case tag == "enableBLOB":
		v := &EnableBLOB{}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{EnableBLOB: v}, nil

	case strings.HasPrefix(tag, "new"):
		kind, err := vectorKind(tag, "new")
		if err != nil {
			return nil, err
		}
		v := &NewVector{Kind: kind}
		if err := unmarshalBody(tag, body, v); err != nil {
			return nil, err
		}
		return &Message{New: v}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, tag)
}

// vectorKind extracts the element kind from tags like defNumberVector.
func vectorKind(tag, prefix string) (model.Kind, error) {
	if !strings.HasSuffix(tag, "Vector") {
		return model.KindUnknown, fmt.Errorf("%w: %q", ErrUnknownMessage, tag)
	}
	kind, err := model.ParseKind(tag[len(prefix) : len(tag)-len("Vector")])
	if err != nil {
		return model.KindUnknown, fmt.Errorf("%w: %q", ErrUnknownMessage, tag)
	}
	return kind, nil
}

func unmarshalBody(tag string, body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, tag, err)
	}
	return nil
}

// Encoder writes outbound messages to a stream, one JSON object per
// message followed by a blank line.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals and writes one message.
func (e *Encoder) Encode(msg *Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

// Marshal renders one message as its tagged JSON object plus the
// trailing blank line.
func Marshal(msg *Message) ([]byte, error) {
	tag, body, err := tagged(msg)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]any{tag: body})
	if err != nil {
		return nil, err
	}
	return append(data, '\n', '\n'), nil
}

// Tag returns the wire tag of the message, empty for an empty message.
func Tag(msg *Message) string {
	tag, _, err := tagged(msg)
	if err != nil {
		return ""
	}
	return tag
}

func tagged(msg *Message) (string, any, error) {
	switch {
	case msg.GetProperties != nil:
		return "getProperties", msg.GetProperties, nil
	case msg.New != nil:
		return "new" + msg.New.Kind.String() + "Vector", msg.New, nil
	case msg.EnableBLOB != nil:
		return "enableBLOB", msg.EnableBLOB, nil
	case msg.Def != nil:
		return "def" + msg.Def.Kind.String() + "Vector", msg.Def, nil
	case msg.Set != nil:
		return "set" + msg.Set.Kind.String() + "Vector", msg.Set, nil
	case msg.Delete != nil:
		return "deleteProperty", msg.Delete, nil
	case msg.Broadcast != nil:
		return "message", msg.Broadcast, nil
	}
	return "", nil, errors.New("empty message")
}
