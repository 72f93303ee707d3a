package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ChunkMagic identifies serialized chunks.
const ChunkMagic = "JSBC"

// cborEncMode uses canonical encoding so identical chunks serialize to
// identical bytes, which the chunk cache relies on for content hashing.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// envelope wraps a chunk on the wire.
type envelope struct {
	Magic   string `cbor:"magic"`
	Version uint16 `cbor:"version"`
	Chunk   *Chunk `cbor:"chunk"`
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	data, err := cborEncMode.Marshal(envelope{Magic: ChunkMagic, Version: c.Version, Chunk: c})
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}
	return data, nil
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if env.Magic != ChunkMagic {
		return nil, fmt.Errorf("bytecode: not a chunk (magic %q)", env.Magic)
	}
	if env.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode: chunk version %d is newer than supported version %d", env.Version, BytecodeVersion)
	}
	if env.Chunk == nil {
		return nil, fmt.Errorf("bytecode: envelope has no chunk")
	}
	return env.Chunk, nil
}
