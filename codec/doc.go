// Package codec implements the boundary value encoding.
//
// Every value crossing the boundary is a flat, self-delimiting byte
// sequence. Integers are big-endian, floats are encoded by bit pattern,
// booleans are one byte, strings and byte buffers carry a u32 length prefix,
// optional values a one-byte presence tag, tagged unions a 1-based u32
// discriminant followed by the case's payload fields, and records are the
// concatenation of their fields. Schemas are agreed at build time: field
// order and discriminants are never inferred from the bytes.
//
// Two layers are provided:
//
//	Writer / Reader       primitive encoders used by typed Marshaler and
//	                      Unmarshaler implementations
//	Type, Encode, Decode  schema-driven encoding of dynamic values, with
//	                      schemas built by hand or compiled from WIT
//
// Decoding never reads out of bounds. A short buffer yields
// errors.KindBufferOverflow, leftover bytes after a top-level value
// errors.KindTrailingData, an out-of-range discriminant
// errors.KindUnknownVariant and anything else that is not a canonical
// encoding (invalid UTF-8, a bool byte of 2) errors.KindMalformedData.
package codec
