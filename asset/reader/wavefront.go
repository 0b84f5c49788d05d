package reader

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/asset"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

type wavefrontMesh struct {
	mesh *asset.Mesh

	// Maps indices into the global vertex list to mesh-local indices.
	remap map[int]uint32
}

type wavefrontSceneReader struct {
	logger log.Logger

	// The parsed scene.
	scene *asset.Scene

	meshes     []*wavefrontMesh
	meshByName map[string]int

	// Global vertex list shared by all included files.
	vertexList []types.Vec3

	// Statements that are valid wavefront but carry no geometry we need.
	skipped map[string]int

	// An error stack that provides additional error information when
	// scene files include other files.
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:     log.New("wavefront reader"),
		scene:      &asset.Scene{},
		meshByName: make(map[string]int),
		vertexList: make([]types.Vec3, 0),
		skipped:    make(map[string]int),
		errStack:   make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*asset.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}
	r.dropEmptyMesh()

	for _, wfMesh := range r.meshes {
		r.scene.Meshes = append(r.scene.Meshes, wfMesh.mesh)
	}

	// If no instances are defined, create one for each defined mesh
	if len(r.scene.Instances) == 0 {
		r.createDefaultInstances()
	}

	for stmt, count := range r.skipped {
		r.logger.Debugf(`ignored %d "%s" statements`, count, stmt)
	}

	r.logger.Noticef("parsed scene in %d ms (%d meshes, %d triangles, %d instances)",
		time.Since(start).Nanoseconds()/1e6, len(r.scene.Meshes), r.scene.TriangleCount(), len(r.scene.Instances))
	return r.scene, nil
}

// Generate an instance with an identity transformation for each defined mesh.
func (r *wavefrontSceneReader) createDefaultInstances() {
	for meshIndex := range r.scene.Meshes {
		r.scene.Instances = append(r.scene.Instances, &asset.Instance{
			Entity:    uint64(len(r.scene.Instances) + 1),
			MeshIndex: meshIndex,
			Transform: types.Ident4(),
		})
	}
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return fmt.Errorf("%s", errMsg)
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Start a new mesh. Mesh names must be unique.
func (r *wavefrontSceneReader) beginMesh(name string) error {
	r.dropEmptyMesh()

	if _, exists := r.meshByName[name]; exists {
		return fmt.Errorf(`mesh "%s" already defined`, name)
	}
	r.meshes = append(r.meshes, &wavefrontMesh{
		mesh:  &asset.Mesh{Name: name},
		remap: make(map[int]uint32),
	})
	r.meshByName[name] = len(r.meshes) - 1
	return nil
}

// Get the mesh that receives faces, creating a default one if needed.
func (r *wavefrontSceneReader) currentMesh() *wavefrontMesh {
	if len(r.meshes) == 0 {
		r.meshes = append(r.meshes, &wavefrontMesh{
			mesh:  &asset.Mesh{Name: "default"},
			remap: make(map[int]uint32),
		})
		r.meshByName["default"] = 0
	}
	return r.meshes[len(r.meshes)-1]
}

// Drop the last parsed mesh if it contains no triangles.
func (r *wavefrontSceneReader) dropEmptyMesh() {
	last := len(r.meshes) - 1
	if last < 0 || len(r.meshes[last].mesh.Indices) != 0 {
		return
	}

	r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.meshes[last].mesh.Name)
	delete(r.meshByName, r.meshes[last].mesh.Name)
	r.meshes = r.meshes[:last]
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex offset we can apply it while parsing faces
	// to select the correct coordinates.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			if err = r.beginMesh(lineTokens[1]); err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "f":
			if err = r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "dynamic":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "dynamic"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			meshIndex, exists := r.meshByName[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `unknown mesh with name "%s"`, lineTokens[1])
			}
			r.meshes[meshIndex].mesh.Dynamic = true
		case "camera_fov":
			r.scene.Camera.FOV, err = parseFloat32(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "camera_eye":
			r.scene.Camera.Eye, err = parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "camera_look":
			r.scene.Camera.Look, err = parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "camera_up":
			r.scene.Camera.Up, err = parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
		case "instance":
			instance, err := r.parseInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, err.Error())
			}
			r.scene.Instances = append(r.scene.Instances, instance)
		default:
			// Normals, tex coords and materials do not affect the index
			r.skipped[lineTokens[0]]++
		}
	}
	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, err.Error())
	}

	return nil
}

// Parse instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseInstance(lineTokens []string) (*asset.Instance, error) {
	if len(lineTokens) != 11 {
		return nil, fmt.Errorf(`unsupported syntax for "instance"; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	// Faces of the mesh currently being parsed may still follow, so only
	// meshes with at least one face can be instanced.
	meshName := lineTokens[1]
	meshIndex, exists := r.meshByName[meshName]
	if !exists || len(r.meshes[meshIndex].mesh.Indices) == 0 {
		return nil, fmt.Errorf(`unknown mesh with name "%s"`, meshName)
	}

	var args [9]float32
	for index := range args {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return nil, err
		}
		args[index] = float32(v)
	}

	translation := types.XYZ(args[0], args[1], args[2])
	rotation := types.XYZ(args[3], args[4], args[5]).Mul(math.Pi / 180.0)
	scale := types.XYZ(args[6], args[7], args[8])

	return &asset.Instance{
		Entity:    uint64(len(r.scene.Instances) + 1),
		MeshIndex: meshIndex,
		Transform: types.TRS(translation, rotation, scale),
	}, nil
}

// Parse face definition. Each face definitions consists of 3 or 4 arguments,
// one for each vertex. Each one of the vertex arguments is comprised of
// 1, 2 or 3 args separated by a slash character. Only the vertex index is
// used; the following formats are accepted:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate
// an offset off the end of the vertex list. Quad faces are split into
// two triangles.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var vertices [4]int
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = vOffset
	}

	indiceList := [][3]int{{0, 1, 2}}
	if len(lineTokens) == 5 {
		indiceList = append(indiceList, [3]int{0, 2, 3})
	}

	wfMesh := r.currentMesh()
	for _, indices := range indiceList {
		for _, selectIndex := range indices {
			wfMesh.mesh.Indices = append(wfMesh.mesh.Indices, wfMesh.localIndex(r.vertexList, vertices[selectIndex]))
		}
	}
	return nil
}

// Map a global vertex index to a mesh-local one, copying the vertex into the
// mesh on first use.
func (m *wavefrontMesh) localIndex(vertexList []types.Vec3, global int) uint32 {
	if local, exists := m.remap[global]; exists {
		return local
	}
	local := uint32(len(m.mesh.Positions))
	m.mesh.Positions = append(m.mesh.Positions, vertexList[global])
	m.remap[global] = local
	return local
}

// Given an index for a face coord calculate the proper offset into the
// coord list. Wavefront format can also use negative indices to reference
// elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
