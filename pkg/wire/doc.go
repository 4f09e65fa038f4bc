// Package wire implements the INDIGO JSON message model and codec.
//
// # Message Format
//
// The server speaks JSON objects over a TCP stream, one protocol
// message per object, each keyed by a single tag that names the
// message type and, for vectors, the element kind:
//
//	{"defNumberVector": {"device": "Mount", "name": "SLEW_RATE", ...}}
//	{"setSwitchVector": {"device": "Mount", "name": "CONNECTION", ...}}
//	{"deleteProperty":  {"device": "Mount"}}
//	{"message":         {"message": "driver loaded"}}
//
// Objects are concatenated on the stream with no framing beyond JSON
// syntax; Decoder relies on json.Decoder's token scanning to split
// them. Outbound messages are a single marshaled object followed by a
// blank line, as servers expect:
//
//	{"getProperties": {"version": 512, "client": "indigo-ctl"}}
//	{"newNumberVector": {"device": "Mount", "name": "SLEW_RATE", "items": [...]}}
//	{"enableBLOB": {"device": "CCD Imager", "value": "Also"}}
//
// # Message Variants
//
// Message is a tagged union with one pointer field per variant; exactly
// one is non-nil. Vector payload values are decoded as loose JSON
// scalars (float/string/bool) since their type depends on the element
// kind carried by the tag; Item provides typed accessors.
//
// The codec validates JSON shape only. Field-level validation (states,
// permissions, bounds) belongs to the registry's application path.
package wire
