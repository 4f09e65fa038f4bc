// Package model implements the INDIGO client data model.
//
// # Object Hierarchy
//
// The client mirrors remote server state in a 3-level hierarchy:
//
//	Device > Property > Element
//
// A Device represents a remote controllable entity (e.g., a CCD camera,
// a mount). Devices contain Properties, each a named, typed container of
// Elements. Elements are single value slots of one of five kinds.
//
// # Element Kinds
//
// Every Element carries exactly one Value variant:
//   - Number: float value with target, bounds, step, and format string
//   - Text: string value
//   - Switch: boolean on/off
//   - Light: a State (Idle/Ok/Busy/Alert) used as an indicator
//   - BLOB: binary payload with size, format hint, and optional URL
//
// A Property's kind is fixed at creation and all its Elements share it.
//
// # Metadata
//
// Properties carry state (Idle/Ok/Busy/Alert), permission (ro/rw/wo),
// a switch rule (OneOfMany/AtMostOne/AnyOfMany, meaningful for Switch
// properties only), a display label, and a free-form group tag. Light
// properties are always read-only with no timeout.
//
// # Mutation Discipline
//
// Names are immutable after creation. Values and metadata mutate only
// through the connection's message-application path; all other code
// reads. The Set*/Update* methods exist for that path and must not be
// called by consumers of the mirror.
package model
