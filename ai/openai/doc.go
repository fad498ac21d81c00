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


// Package openai provides the text encoder backed by OpenAI-compatible
// embedding APIs.
//
// The encoder uses the langchaingo library to talk to OpenAI or an
// OpenAI-compatible service (Ollama, LocalAI, vLLM). The service is pinged
// once at construction to learn the vector dimension; a failed ping means the
// encoder facility is unavailable and the embedding provider degrades.
//
// # Usage
//
//	config := ai.NewConfig(ai.WithEmbeddingHost("http://localhost:11434"))
//
//	encoder, err := openai.ProbeEncoder(ctx, config)
//	if err != nil {
//	    // encoder facility unavailable
//	}
//	vectors, err := encoder.EncodeTexts(ctx, []string{"sample text"})
package openai
