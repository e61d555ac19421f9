package storage

import (
	"testing"
	"time"

	"github.com/vjranagit/trendline/pkg/types"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(3)
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	defer codec.Close()

	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	samples := []types.Sample{
		{Timestamp: base, Value: 100.5},
		{Timestamp: base.Add(15 * time.Second), Value: 101.25},
		{Timestamp: base.Add(30 * time.Second), Value: -3.75},
		{Timestamp: base.Add(47 * time.Second), Value: 0},
		{Timestamp: base.Add(78*time.Second + 250*time.Millisecond), Value: 99.999},
	}

	encoded, err := codec.EncodeBlock(samples)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	decoded, err := codec.DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if !decoded[i].Timestamp.Equal(samples[i].Timestamp) {
			t.Errorf("Sample %d: timestamp %v != %v", i, decoded[i].Timestamp, samples[i].Timestamp)
		}
		if decoded[i].Value != samples[i].Value {
			t.Errorf("Sample %d: value %v != %v", i, decoded[i].Value, samples[i].Value)
		}
	}
}

func TestCodecEmptyBlock(t *testing.T) {
	codec, err := NewCodec(1)
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	defer codec.Close()

	encoded, err := codec.EncodeBlock(nil)
	if err != nil {
		t.Fatalf("Failed to encode empty block: %v", err)
	}

	decoded, err := codec.DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("Failed to decode empty block: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("Expected 0 samples, got %d", len(decoded))
	}
}

func TestCodecSingleSample(t *testing.T) {
	codec, err := NewCodec(4)
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	defer codec.Close()

	samples := []types.Sample{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 42.0},
	}

	encoded, err := codec.EncodeBlock(samples)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	decoded, err := codec.DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if len(decoded) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(decoded))
	}
	if decoded[0].Value != 42.0 {
		t.Errorf("Expected value 42.0, got %f", decoded[0].Value)
	}
}

func TestCodecMillisecondPrecision(t *testing.T) {
	codec, err := NewCodec(2)
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	defer codec.Close()

	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	samples := []types.Sample{
		{Timestamp: base.Add(123 * time.Millisecond), Value: 1},
		{Timestamp: base.Add(456 * time.Millisecond), Value: 2},
	}

	encoded, err := codec.EncodeBlock(samples)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	decoded, err := codec.DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	for i := range samples {
		if decoded[i].Timestamp.UnixMilli() != samples[i].Timestamp.UnixMilli() {
			t.Errorf("Sample %d: lost millisecond precision: %v != %v",
				i, decoded[i].Timestamp, samples[i].Timestamp)
		}
	}
}
