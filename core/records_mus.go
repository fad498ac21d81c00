package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// ErrNegativeLength is returned when a serialized length prefix is negative.
var ErrNegativeLength = errors.New("negative length")

var (
	IDMUS         = idMUS{}
	PageSpanMUS   = pageSpanMUS{}
	DocumentMUS   = documentMUS{}
	CheckpointMUS = checkpointMUS{}
	VectorMUS     = vectorMUS{}
	MetadataMUS   = metadataMUS{}
)

// Timestamps are stored as Unix microseconds.
type timeMUS struct{}

func (s timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func unmarshalLength(bs []byte) (l int, n int, err error) {
	l, n, err = varint.Int.Unmarshal(bs)
	if err == nil && l < 0 {
		err = ErrNegativeLength
	}
	return
}

type vectorMUS struct{}

func (s vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	l, n, err := unmarshalLength(bs)
	if err != nil {
		return
	}
	if l == 0 {
		return nil, n, nil
	}
	v = make([]float32, l)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

type metadataMUS struct{}

func (s metadataMUS) Marshal(v map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for k, val := range v {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(val, bs[n:])
	}
	return
}

func (s metadataMUS) Unmarshal(bs []byte) (v map[string]string, n int, err error) {
	l, n, err := unmarshalLength(bs)
	if err != nil {
		return
	}
	if l == 0 {
		return nil, n, nil
	}
	v = make(map[string]string, l)
	var (
		k, val string
		n1     int
	)
	for range l {
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		val, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[k] = val
	}
	return
}

func (s metadataMUS) Size(v map[string]string) (size int) {
	size = varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k) + ord.String.Size(val)
	}
	return
}

type pageSpanMUS struct{}

func (s pageSpanMUS) Marshal(v PageSpan, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Page, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int.Marshal(v.Start, bs[n:])
	n += varint.Int.Marshal(v.End, bs[n:])
	return
}

func (s pageSpanMUS) Unmarshal(bs []byte) (v PageSpan, n int, err error) {
	v.Page, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Start, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.End, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s pageSpanMUS) Size(v PageSpan) (size int) {
	return varint.Int.Size(v.Page) + ord.String.Size(v.Text) +
		varint.Int.Size(v.Start) + varint.Int.Size(v.End)
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.FullText, bs[n:])
	n += varint.Int.Marshal(len(v.Pages), bs[n:])
	for _, p := range v.Pages {
		n += PageSpanMUS.Marshal(p, bs[n:])
	}
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	n += IDMUS.Marshal(v.ContentHash, bs[n:])
	n += timeMUS{}.Marshal(v.InsertedAt, bs[n:])
	return
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FullText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var l int
	l, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if l > 0 {
		v.Pages = make([]PageSpan, l)
		for i := range v.Pages {
			v.Pages[i], n1, err = PageSpanMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	v.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ContentHash, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id) + ord.String.Size(v.Filename) + ord.String.Size(v.FullText)
	size += varint.Int.Size(len(v.Pages))
	for _, p := range v.Pages {
		size += PageSpanMUS.Size(p)
	}
	size += MetadataMUS.Size(v.Metadata)
	size += IDMUS.Size(v.ContentHash)
	size += timeMUS{}.Size(v.InsertedAt)
	return
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.ProcessorType, bs)
	n += IDMUS.Marshal(v.LastID, bs[n:])
	n += timeMUS{}.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.ProcessorType, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.LastID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS{}.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	return ord.String.Size(v.ProcessorType) + IDMUS.Size(v.LastID) + timeMUS{}.Size(v.UpdatedAt)
}
