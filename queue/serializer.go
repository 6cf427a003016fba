// File: queue/serializer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serializer documents the object-facing collaborator this package
// deliberately does not implement (spec.md §6: "out of scope but
// specified"). An object-serialization facade would encode language
// values to a self-describing byte string before Put and decode them
// after Get; this package makes no assumption about that encoding.

package queue

// Serializer converts between language-level values and the byte
// strings Queue.Put/Queue.Get exchange. No implementation ships in
// this module; callers that need object semantics provide their own.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
