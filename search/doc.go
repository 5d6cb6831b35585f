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


// Package search executes hybrid queries over committed index state.
//
// The Engine type combines two signals for every query:
//   - Lexical scoring using BM25 over term postings
//   - Semantic scoring using cosine similarity over embeddings
//
// Both signals run against the same immutable snapshot, their scores
// are rescaled to a common range and fused with configurable weights,
// and chunk-level hits are collapsed to their parent documents. When
// the embedding provider is unavailable the engine degrades to
// lexical-only results instead of failing. Results are cached with a
// short TTL; the cache is invalidated whenever a commit changes the
// committed state.
package search
