package query

import (
	"bytes"
	"fmt"

	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
	"github.com/segmentio/encoding/json"
)

// A Vector is a script-side 3-component vector. It encodes as a JSON array
// and decodes from either an array ([x, y, z]) or an object ({"x", "y", "z"}).
type Vector [3]float32

func (v Vector) vec3() types.Vec3 {
	return types.XYZ(v[0], v[1], v[2])
}

func fromVec3(v types.Vec3) Vector {
	return Vector{v[0], v[1], v[2]}
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidRequest)
	}

	switch data[0] {
	case '[':
		var arr []float32
		if err := json.Unmarshal(data, &arr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if len(arr) != 3 {
			return fmt.Errorf("%w: expected 3 vector components; got %d", ErrInvalidRequest, len(arr))
		}
		copy(v[:], arr)
		return nil
	case '{':
		var obj struct {
			X *float32 `json:"x"`
			Y *float32 `json:"y"`
			Z *float32 `json:"z"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if obj.X == nil || obj.Y == nil || obj.Z == nil {
			return fmt.Errorf("%w: vector object requires x, y and z", ErrInvalidRequest)
		}
		*v = Vector{*obj.X, *obj.Y, *obj.Z}
		return nil
	}
	return fmt.Errorf("%w: expected vector array or object; got %s", ErrInvalidRequest, data)
}
