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


// Package analysis provides text normalization and document chunking.
//
// The tokenizer turns raw text into a stream of lower-cased,
// punctuation-free tokens split on Unicode letter/number boundaries.
// The chunker splits document content into bounded, overlap-free
// chunks using token-count limits, preferring sentence and paragraph
// boundaries. Both are deterministic: the same input always produces
// the same output, which lets indexes be rebuilt from stored text.
package analysis
