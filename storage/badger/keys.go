package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/retrievit/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "docrec"
	documentIDSeq       = "docrecseq"
	chunkPrefix         = "chkrec"
	chunkIDSeq          = "chkrecseq"
	documentChunkPrefix = "docchk"
	postingsPrefix      = "postrec"
	manifestKeyName     = "idxman"
	segmentIDSeq        = "segseq"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeDocumentChunkKey generates a composite key for the
// document-to-chunk relation.
// Format: prefix:documentID:chunkID
func makeDocumentChunkKey(documentID, chunkID core.ID) []byte {
	prefix := documentChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialDocumentChunkKey generates a partial key for scanning all
// chunks of a document.
// Format: prefix:documentID
func makePartialDocumentChunkKey(documentID core.ID) []byte {
	prefix := documentChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makePostingsKey generates a key for a chunk's postings record.
func makePostingsKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", postingsPrefix, chunkID))
}

// makeManifestKey generates the key of the segment manifest record.
func makeManifestKey() []byte {
	return []byte(manifestKeyName)
}
