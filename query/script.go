package query

import (
	"fmt"

	"github.com/segmentio/encoding/json"
)

var (
	defaultEncoder = json.Marshal
	defaultDecoder = json.Unmarshal
)

// The operations a script can request.
const (
	OpRaycastFirst = "raycastFirst"
	OpRaycastAll   = "raycastAll"
)

// A Request is the script-side form of a raycast query.
type Request struct {
	Op     string `json:"op"`
	Origin Vector `json:"origin"`
	Dir    Vector `json:"dir"`

	// Optional; DefaultMaxDistance when omitted.
	MaxDistance *float32 `json:"maxDistance,omitempty"`
}

func (r Request) maxDistance() float32 {
	if r.MaxDistance == nil {
		return DefaultMaxDistance
	}
	return *r.MaxDistance
}

// Handle decodes a script request, runs it and encodes the result. A
// raycastFirst miss encodes as null and raycastAll always encodes as an
// array.
func (a *Adapter) Handle(data []byte) ([]byte, error) {
	var req Request
	if err := a.decoder(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var res interface{}
	switch req.Op {
	case OpRaycastFirst:
		if hit, ok := a.RaycastFirst(req.Origin, req.Dir, req.maxDistance()); ok {
			res = hit
		}
	case OpRaycastAll:
		res = a.RaycastAll(req.Origin, req.Dir, req.maxDistance())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Op)
	}

	a.logger.Debugf("%s from %v dir %v", req.Op, req.Origin, req.Dir)
	return a.encoder(res)
}
