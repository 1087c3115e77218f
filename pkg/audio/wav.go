package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteWAV writes samples as a 16-bit signed mono WAV file at sampleRate.
// Samples are clamped to [-1.0, 1.0] before quantisation; clipping here does
// not affect the live pipeline, which only ever sees the original floats.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	const (
		bitsPerSample = 16
		numChannels   = 1
	)
	dataLen := len(samples) * (bitsPerSample / 8)
	byteRate := sampleRate * numChannels * (bitsPerSample / 8)
	blockAlign := numChannels * (bitsPerSample / 8)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("audio: write wav header: %w", err)
	}

	buf := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s*32767)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("audio: write wav data: %w", err)
	}
	return nil
}
