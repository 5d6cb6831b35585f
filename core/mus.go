package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the persisted domain types. The
// wire format is a flat field-by-field encoding: varint scalars,
// length-prefixed strings and collections, timestamps as microsecond
// Unix values.

// MUS serializer instances.
var (
	IDMUS          = idMUS{}
	DocumentMUS    = documentMUS{}
	ChunkMUS       = chunkMUS{}
	SegmentInfoMUS = segmentInfoMUS{}
	ManifestMUS    = manifestMUS{}
	PostingsMUS    = postingsMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

var timeSer = timeMUS{}

type idSliceMUS struct{}

func (idSliceMUS) Marshal(ids []ID, bs []byte) int {
	n := varint.Int.Marshal(len(ids), bs)
	for _, id := range ids {
		n += IDMUS.Marshal(id, bs[n:])
	}
	return n
}

func (idSliceMUS) Unmarshal(bs []byte) ([]ID, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	ids := make([]ID, length)
	for i := 0; i < length; i++ {
		var n1 int
		ids[i], n1, err = IDMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return ids, n, nil
}

func (idSliceMUS) Size(ids []ID) int {
	n := varint.Int.Size(len(ids))
	for _, id := range ids {
		n += IDMUS.Size(id)
	}
	return n
}

var idSliceSer = idSliceMUS{}

type metadataMUS struct{}

func (metadataMUS) Marshal(m map[string]string, bs []byte) int {
	n := varint.Int.Marshal(len(m), bs)
	for k, v := range m {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func (metadataMUS) Unmarshal(bs []byte) (map[string]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	m := make(map[string]string, length)
	for i := 0; i < length; i++ {
		var k, v string
		var n1 int
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func (metadataMUS) Size(m map[string]string) int {
	n := varint.Int.Size(len(m))
	for k, v := range m {
		n += ord.String.Size(k)
		n += ord.String.Size(v)
	}
	return n
}

var metadataSer = metadataMUS{}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := 0; i < length; i++ {
		var n1 int
		v[i], n1, err = varint.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) int {
	n := varint.Int.Size(len(v))
	for _, f := range v {
		n += varint.Float32.Size(f)
	}
	return n
}

var vectorSer = vectorMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) int {
	n := IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += metadataSer.Marshal(d.Metadata, bs[n:])
	n += timeSer.Marshal(d.CreatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (Document, int, error) {
	var (
		d   Document
		n1  int
		err error
	)
	d.Id, n1, err = IDMUS.Unmarshal(bs)
	n := n1
	if err != nil {
		return d, n, err
	}
	d.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return d, n, err
	}
	d.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return d, n, err
	}
	d.Metadata, n1, err = metadataSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return d, n, err
	}
	d.CreatedAt, n1, err = timeSer.Unmarshal(bs[n:])
	n += n1
	return d, n, err
}

func (documentMUS) Size(d Document) int {
	return IDMUS.Size(d.Id) +
		ord.String.Size(d.Title) +
		ord.String.Size(d.Content) +
		metadataSer.Size(d.Metadata) +
		timeSer.Size(d.CreatedAt)
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) int {
	n := IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentId, bs[n:])
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += varint.Int.Marshal(c.TokenCount, bs[n:])
	n += vectorSer.Marshal(c.Embedding, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (Chunk, int, error) {
	var (
		c   Chunk
		n1  int
		err error
	)
	c.Id, n1, err = IDMUS.Unmarshal(bs)
	n := n1
	if err != nil {
		return c, n, err
	}
	c.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Embedding, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	return c, n, err
}

func (chunkMUS) Size(c Chunk) int {
	return IDMUS.Size(c.Id) +
		IDMUS.Size(c.DocumentId) +
		varint.Int.Size(c.Ordinal) +
		ord.String.Size(c.Text) +
		varint.Int.Size(c.TokenCount) +
		vectorSer.Size(c.Embedding)
}

type segmentInfoMUS struct{}

func (segmentInfoMUS) Marshal(s SegmentInfo, bs []byte) int {
	n := IDMUS.Marshal(s.Id, bs)
	n += timeSer.Marshal(s.CreatedAt, bs[n:])
	n += idSliceSer.Marshal(s.ChunkIds, bs[n:])
	return n
}

func (segmentInfoMUS) Unmarshal(bs []byte) (SegmentInfo, int, error) {
	var (
		s   SegmentInfo
		n1  int
		err error
	)
	s.Id, n1, err = IDMUS.Unmarshal(bs)
	n := n1
	if err != nil {
		return s, n, err
	}
	s.CreatedAt, n1, err = timeSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return s, n, err
	}
	s.ChunkIds, n1, err = idSliceSer.Unmarshal(bs[n:])
	n += n1
	return s, n, err
}

func (segmentInfoMUS) Size(s SegmentInfo) int {
	return IDMUS.Size(s.Id) +
		timeSer.Size(s.CreatedAt) +
		idSliceSer.Size(s.ChunkIds)
}

type manifestMUS struct{}

func (manifestMUS) Marshal(m Manifest, bs []byte) int {
	n := varint.Int.Marshal(len(m.Segments), bs)
	for _, seg := range m.Segments {
		n += SegmentInfoMUS.Marshal(seg, bs[n:])
	}
	n += idSliceSer.Marshal(m.Tombstones, bs[n:])
	n += timeSer.Marshal(m.UpdatedAt, bs[n:])
	return n
}

func (manifestMUS) Unmarshal(bs []byte) (Manifest, int, error) {
	var m Manifest
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return m, n, err
	}
	if length > 0 {
		m.Segments = make([]SegmentInfo, length)
		for i := 0; i < length; i++ {
			var n1 int
			m.Segments[i], n1, err = SegmentInfoMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return m, n, err
			}
		}
	}
	var n1 int
	m.Tombstones, n1, err = idSliceSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}
	m.UpdatedAt, n1, err = timeSer.Unmarshal(bs[n:])
	n += n1
	return m, n, err
}

func (manifestMUS) Size(m Manifest) int {
	n := varint.Int.Size(len(m.Segments))
	for _, seg := range m.Segments {
		n += SegmentInfoMUS.Size(seg)
	}
	return n + idSliceSer.Size(m.Tombstones) + timeSer.Size(m.UpdatedAt)
}

type postingsMUS struct{}

func (postingsMUS) Marshal(p map[string]uint32, bs []byte) int {
	n := varint.Int.Marshal(len(p), bs)
	for term, freq := range p {
		n += ord.String.Marshal(term, bs[n:])
		n += varint.Uint32.Marshal(freq, bs[n:])
	}
	return n
}

func (postingsMUS) Unmarshal(bs []byte) (map[string]uint32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	p := make(map[string]uint32, length)
	for i := 0; i < length; i++ {
		var (
			term string
			freq uint32
			n1   int
		)
		term, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		freq, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		p[term] = freq
	}
	return p, n, nil
}

func (postingsMUS) Size(p map[string]uint32) int {
	n := varint.Int.Size(len(p))
	for term, freq := range p {
		n += ord.String.Size(term)
		n += varint.Uint32.Size(freq)
	}
	return n
}
