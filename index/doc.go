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


// Package index maintains the lexical (BM25) and vector indexes over
// document chunks and owns their staged-write/commit/compaction
// lifecycle.
//
// Writes are staged into a mutable pending buffer that is invisible
// to readers. Commit promotes the pending buffer into a new immutable
// segment and publishes a fresh snapshot by atomically swapping a
// pointer; readers take the snapshot at query start and are never
// blocked by writers. Optimize merges all committed segments into one
// and purges tombstoned chunks. BM25 corpus statistics (document
// frequencies, average chunk length) are computed once per commit and
// frozen until the next commit.
package index
