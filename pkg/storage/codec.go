package storage

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/vjranagit/trendline/pkg/types"
)

// Codec encodes sample blocks: delta-of-delta for millisecond
// timestamps, XOR for float64 bits, zstd over the whole payload.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec at the given compression level (1 fastest,
// 4 best).
func NewCodec(level int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}

	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// EncodeBlock serializes a block of samples. Samples must be sorted
// ascending by timestamp for the delta encoding to stay compact.
func (c *Codec) EncodeBlock(samples []types.Sample) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(samples))); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return c.encoder.EncodeAll(buf.Bytes(), nil), nil
	}

	// Timestamps: first as-is, then delta-of-delta.
	if err := binary.Write(buf, binary.LittleEndian, samples[0].Timestamp.UnixMilli()); err != nil {
		return nil, err
	}
	var prevDelta int64
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Timestamp.UnixMilli() - samples[i-1].Timestamp.UnixMilli()
		if err := binary.Write(buf, binary.LittleEndian, delta-prevDelta); err != nil {
			return nil, err
		}
		prevDelta = delta
	}

	// Values: first as raw bits, then XOR against the previous value.
	prevBits := math.Float64bits(samples[0].Value)
	if err := binary.Write(buf, binary.LittleEndian, prevBits); err != nil {
		return nil, err
	}
	for i := 1; i < len(samples); i++ {
		bits := math.Float64bits(samples[i].Value)
		if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
			return nil, err
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// DecodeBlock reverses EncodeBlock.
func (c *Codec) DecodeBlock(data []byte) ([]types.Sample, error) {
	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decode")
	}

	buf := bytes.NewReader(decompressed)

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read sample count")
	}
	if count == 0 {
		return nil, nil
	}

	timestamps := make([]int64, count)
	if err := binary.Read(buf, binary.LittleEndian, &timestamps[0]); err != nil {
		return nil, err
	}
	var prevDelta int64
	for i := uint32(1); i < count; i++ {
		var dod int64
		if err := binary.Read(buf, binary.LittleEndian, &dod); err != nil {
			return nil, err
		}
		delta := dod + prevDelta
		timestamps[i] = timestamps[i-1] + delta
		prevDelta = delta
	}

	values := make([]float64, count)
	var prevBits uint64
	if err := binary.Read(buf, binary.LittleEndian, &prevBits); err != nil {
		return nil, err
	}
	values[0] = math.Float64frombits(prevBits)
	for i := uint32(1); i < count; i++ {
		var xor uint64
		if err := binary.Read(buf, binary.LittleEndian, &xor); err != nil {
			return nil, err
		}
		bits := xor ^ prevBits
		values[i] = math.Float64frombits(bits)
		prevBits = bits
	}

	samples := make([]types.Sample, count)
	for i := uint32(0); i < count; i++ {
		samples[i] = types.Sample{
			Timestamp: timeFromMilli(timestamps[i]),
			Value:     values[i],
		}
	}
	return samples, nil
}

// Close releases zstd resources.
func (c *Codec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
