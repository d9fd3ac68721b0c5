package util

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// BoxMesh is a named set of axis-aligned boxes exported as one glTF mesh.
type BoxMesh struct {
	Name  string
	Boxes [][2]mgl32.Vec3
}

// Corner indices are x | y<<1 | z<<2; every quad is wound counter-clockwise
// seen from outside.
var boxQuads = [6][4]uint32{
	{0, 1, 5, 4}, // -y
	{2, 6, 7, 3}, // +y
	{0, 2, 3, 1}, // -z
	{4, 5, 7, 6}, // +z
	{0, 4, 6, 2}, // -x
	{1, 3, 7, 5}, // +x
}

// NewBoxDocument builds a glTF document holding one node per mesh.
func NewBoxDocument(meshes []BoxMesh) *gltf.Document {
	doc := gltf.NewDocument()
	for _, mesh := range meshes {
		if len(mesh.Boxes) == 0 {
			continue
		}
		positions := make([][3]float32, 0, len(mesh.Boxes)*8)
		indices := make([]uint32, 0, len(mesh.Boxes)*36)
		for _, box := range mesh.Boxes {
			base := uint32(len(positions))
			for i := 0; i < 8; i++ {
				c := box[0]
				if i&1 != 0 {
					c[0] = box[1][0]
				}
				if i&2 != 0 {
					c[1] = box[1][1]
				}
				if i&4 != 0 {
					c[2] = box[1][2]
				}
				positions = append(positions, [3]float32(c))
			}
			for _, q := range boxQuads {
				indices = append(indices,
					base+q[0], base+q[1], base+q[2],
					base+q[0], base+q[2], base+q[3])
			}
		}

		primitive := &gltf.Primitive{
			Indices: gltf.Index(modeler.WriteIndices(doc, indices)),
			Mode:    gltf.PrimitiveTriangles,
		}
		setAttribute(&primitive.Attributes, "POSITION", modeler.WritePosition(doc, positions))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: mesh.Name, Primitives: []*gltf.Primitive{primitive}})

		node := &gltf.Node{Name: mesh.Name}
		setIndex(&node.Mesh, len(doc.Meshes)-1)
		doc.Nodes = append(doc.Nodes, node)
		appendIndex(&doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return doc
}

// ExportBoxesGLB writes the meshes as a binary glTF file.
func ExportBoxesGLB(filename string, meshes []BoxMesh) error {
	if err := gltf.SaveBinary(NewBoxDocument(meshes), filename); err != nil {
		return errors.Wrapf(err, "saving %s", filename)
	}
	LogIOInfo("exported boxes", "file", filename, "meshes", len(meshes))
	return nil
}

// The index types of the gltf package changed between releases; these keep
// the exporter independent of them.

func setAttribute[M ~map[string]V, V any](attributes *M, name string, accessor V) {
	if *attributes == nil {
		*attributes = make(M)
	}
	(*attributes)[name] = accessor
}

func setIndex[T ~int | ~uint32](dst **T, i int) {
	v := T(i)
	*dst = &v
}

func appendIndex[T ~int | ~uint32](dst *[]T, i int) {
	*dst = append(*dst, T(i))
}
