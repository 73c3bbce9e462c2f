package snapshot

import "errors"

// ErrUnknownNode is wrapped by errors from GetValue/GetValueAsync/MarkChanged
// when called with a node that is not part of this snapshot's network.
var ErrUnknownNode = errors.New("snapshot: unknown node")

// ErrBuilderNotRegistered is returned by ChangeConfiguration if the
// builder package's init() side effect never ran: the caller's program
// does not import "github.com/vk/graphcommit/builder" anywhere.
var ErrBuilderNotRegistered = errors.New("snapshot: no builder implementation registered")
