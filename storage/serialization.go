// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"

	"github.com/poiesic/clausemark/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, n, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrTruncatedData, n, len(data))
	}
	return &doc, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}

// MarshalVectorEntry serializes an index vector and its metadata.
func MarshalVectorEntry(vector []float32, metadata map[string]string) []byte {
	buf := make([]byte, core.VectorMUS.Size(vector)+core.MetadataMUS.Size(metadata))
	n := core.VectorMUS.Marshal(vector, buf)
	core.MetadataMUS.Marshal(metadata, buf[n:])
	return buf
}

// UnmarshalVectorEntry deserializes an index vector and its metadata.
func UnmarshalVectorEntry(data []byte) ([]float32, map[string]string, error) {
	vector, n, err := core.VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	metadata, _, err := core.MetadataMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return vector, metadata, nil
}

// ProbeVectorCodec round-trips a vector containing edge values through the
// vector codec and reports whether numeric arrays survive it bit for bit.
func ProbeVectorCodec() error {
	probe := []float32{0, -1.5, math.MaxFloat32, float32(math.Inf(1)), math.SmallestNonzeroFloat32}
	decoded, _, err := UnmarshalVectorEntry(MarshalVectorEntry(probe, nil))
	if err != nil {
		return err
	}
	if len(decoded) != len(probe) {
		return fmt.Errorf("%w: decoded %d of %d values", ErrSerializationFailed, len(decoded), len(probe))
	}
	for i := range probe {
		if math.Float32bits(decoded[i]) != math.Float32bits(probe[i]) {
			return fmt.Errorf("%w: value %d changed", ErrSerializationFailed, i)
		}
	}
	return nil
}
