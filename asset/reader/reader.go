package reader

import (
	"fmt"
	"strings"

	"github.com/jonit-dev/vibe-coder-3d-sub004/asset"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*asset.Scene, error)
}

// Read scene from a file or http/https URL.
func ReadScene(filename string) (*asset.Scene, error) {
	// Select reader based on file extension
	var reader Reader
	if strings.HasSuffix(strings.ToLower(filename), ".obj") {
		reader = newWavefrontReader()
	} else {
		return nil, fmt.Errorf("readScene: unsupported file format")
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(res)
}
