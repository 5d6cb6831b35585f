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


package core

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - ID (0 is valid; database sequences assign one on ingest)
//   - Title and Metadata (both optional)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if !doc.CreatedAt.IsZero() && !IsValidTimestamp(doc.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateQuery validates pagination parameters of a Query.
//
// Validation rules:
//   - Page must not be negative
//   - PageSize must be positive
//   - Limit, when set, must be positive
//
// An empty query text is valid and yields an empty result set.
func ValidateQuery(query *Query) error {
	if query == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if query.Page < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrInvalidPage)
	}

	if query.PageSize <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrInvalidPageSize)
	}

	if query.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidQuery)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
