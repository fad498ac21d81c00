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


package openai

import (
	"context"
	"fmt"

	"github.com/poiesic/clausemark/ai"
)

// pingText is embedded once to confirm the service is reachable and to learn
// the model's vector dimension.
const pingText = "clausemark capability probe"

// ProbeEncoder builds an encoder and pings the service with a single embed.
// Any failure means the encoder facility is unavailable.
//
// Returns the concrete *Encoder so callers can report the model in use.
func ProbeEncoder(ctx context.Context, config *ai.Config) (*Encoder, error) {
	encoder, err := newEncoder(config)
	if err != nil {
		return nil, err
	}

	vectors, err := encoder.embedder.EmbedDocuments(ctx, []string{pingText})
	if err != nil {
		return nil, fmt.Errorf("embedding service unreachable: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	encoder.dim = len(vectors[0])
	encoder.logger.Info("embedding service ready", "host", config.EmbeddingHost, "model", config.EmbeddingModel, "dim", encoder.dim)
	return encoder, nil
}
