package deker

import (
	"strings"

	"github.com/google/uuid"
)

// arrayNamespace is the fixed UUIDv5 namespace this engine derives virtual
// array ids from, scoped per collection. It is itself a
// UUIDv5 of the DNS namespace and a fixed engine label, so that the
// derivation is stable across processes and versions without needing to
// persist a separate namespace value.
var arrayNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("deker-go.varray"))

// NewArrayID returns a random UUIDv4, used as the id of a plain Array.
func NewArrayID() string {
	return uuid.New().String()
}

// NewVArrayID deterministically derives a UUIDv5 from the collection name
// and the canonical, percent-escaped primary-attribute path segments, so
// that re-creating a virtual array from the same primary keys after a crash
// is idempotent.
func NewVArrayID(collection string, primarySegs []string) string {
	name := collection + "/" + strings.Join(primarySegs, "/")
	return uuid.NewSHA1(arrayNamespace, []byte(name)).String()
}
