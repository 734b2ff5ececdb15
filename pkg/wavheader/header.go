package wavheader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Size of a canonical PCM WAV header in bytes.
	Size = 44

	// Value of the fmt sub-chunk size field for PCM.
	fmtChunkSize = 16

	// RIFF size of a file holding the header and no samples.
	emptyRIFFSize = Size - 8

	// AudioFormat code for uncompressed PCM.
	FormatPCM uint16 = 1
)

var (
	ErrShortHeader   = errors.New("wav header shorter than 44 bytes")
	ErrInvalidHeader = errors.New("invalid wav header")
)

// Header describes the fields of a canonical 44-byte PCM WAV header.
//
// RIFFSize and DataSize are written exactly as stored, so a Header may
// describe a file whose sizes were never filled in.
type Header struct {
	RIFFSize      uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Create a PCM header for the given format with both size fields left at zero.
// ByteRate and BlockAlign are derived from the other parameters.
func NewPCMHeader(sampleRate uint32, numChannels uint16, bitsPerSample uint16) Header {
	blockAlign := numChannels * bitsPerSample / 8
	return Header{
		AudioFormat:   FormatPCM,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
	}
}

// The header written by the stub recorder: PCM, stereo, 44100Hz, 16 bit,
// with RIFF and data sizes of zero.
func StubHeader() Header {
	return NewPCMHeader(44100, 2, 16)
}

// Return a copy of the header with the size fields set for dataSize bytes
// of samples following the header.
func (h Header) WithDataSize(dataSize uint32) Header {
	h.DataSize = dataSize
	h.RIFFSize = emptyRIFFSize + dataSize
	return h
}

// Encode the header into its 44-byte little endian representation.
func (h Header) MarshalBinary() ([]byte, error) {
	var hdr [Size]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], h.RIFFSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(hdr[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(hdr[22:24], h.NumChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], h.ByteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], h.BlockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], h.BitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], h.DataSize)
	return hdr[:], nil
}

// Write the encoded header to w, returning the number of bytes written.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	b, _ := h.MarshalBinary()
	n, err := w.Write(b)
	return int64(n), err
}

// Parse the first 44 bytes of b as a canonical PCM WAV header.
//
// Only the chunk tags and the fmt sub-chunk size are validated.
// Size fields are returned as found, including zero.
func Parse(b []byte) (Header, error) {
	if len(b) < Size {
		return Header{}, ErrShortHeader
	}

	for _, tag := range []struct {
		offset int
		want   string
	}{
		{0, "RIFF"},
		{8, "WAVE"},
		{12, "fmt "},
		{36, "data"},
	} {
		if got := string(b[tag.offset : tag.offset+4]); got != tag.want {
			return Header{}, fmt.Errorf("%w: expected %q at offset %d, found %q", ErrInvalidHeader, tag.want, tag.offset, got)
		}
	}
	if sz := binary.LittleEndian.Uint32(b[16:20]); sz != fmtChunkSize {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrInvalidHeader, sz)
	}

	return Header{
		RIFFSize:      binary.LittleEndian.Uint32(b[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(b[20:22]),
		NumChannels:   binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}, nil
}

// Rewrite the RIFF and data size fields of a header already written at the
// start of ws, then seek back to the end of the stream.
func UpdateSizes(ws io.WriteSeeker, dataSize uint32) error {
	var buf [4]byte

	if _, err := ws.Seek(4, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[:], emptyRIFFSize+dataSize)
	if _, err := ws.Write(buf[:]); err != nil {
		return err
	}

	if _, err := ws.Seek(40, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[:], dataSize)
	if _, err := ws.Write(buf[:]); err != nil {
		return err
	}

	_, err := ws.Seek(0, io.SeekEnd)
	return err
}
