package cull

// token is a frontier entry packed into one word: the region index in the
// low 32 bits, then the face the region was entered through (3 bits,
// FaceNone for seeds) and the set of directions travelled so far (6 bits).
type token uint64

const (
	tokenFaceShift      = 32
	tokenBacktrackShift = 35
)

func newToken(region int32, entry Face, backtrack uint8) token {
	return token(uint32(region)) |
		token(entry&7)<<tokenFaceShift |
		token(backtrack&0x3f)<<tokenBacktrackShift
}

func (t token) region() int32 {
	return int32(uint32(t))
}

func (t token) entry() Face {
	return Face(t >> tokenFaceShift & 7)
}

func (t token) backtrack() uint8 {
	return uint8(t >> tokenBacktrackShift & 0x3f)
}

// step returns the token for the neighbour reached by leaving through f.
func (t token) step(neighbor int32, f Face) token {
	return newToken(neighbor, f.Opposite(), t.backtrack()|1<<f)
}

// allows reports whether leaving through f would walk back against a
// direction already travelled.
func (t token) allows(f Face) bool {
	return t.backtrack()&(1<<f.Opposite()) == 0
}
