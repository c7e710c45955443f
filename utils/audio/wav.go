package audio

import (
	"encoding/binary"

	"github.com/zaf/g711"
)

// EncodeWAV wraps raw 16-bit little-endian PCM in a standard RIFF/WAVE header
// so downstream tools (and the browser) can play it without guessing the
// sample rate.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const headerSize = 44
	dataLen := len(pcm)

	buf := make([]byte, headerSize+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	byteRate := sampleRate * channels * 2
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                 // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[headerSize:], pcm)
	return buf
}

// WAVDuration returns the playable duration in seconds of a 16-bit PCM WAV
// buffer, or 0 when the header cannot be read.
func WAVDuration(wav []byte) float64 {
	const headerSize = 44
	if len(wav) < headerSize || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0
	}
	channels := int(binary.LittleEndian.Uint16(wav[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(wav[24:28]))
	if channels == 0 || sampleRate == 0 {
		return 0
	}
	dataLen := int(binary.LittleEndian.Uint32(wav[40:44]))
	if dataLen > len(wav)-headerSize {
		dataLen = len(wav) - headerSize
	}
	samples := dataLen / (2 * channels)
	return float64(samples) / float64(sampleRate)
}

// DecodeUlaw converts 8-bit μ-law samples (telephony encoding some vendors
// emit) to 16-bit little-endian PCM.
func DecodeUlaw(ulaw []byte) []byte {
	pcm := make([]byte, len(ulaw)*2)
	for i, sample := range ulaw {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(g711.DecodeUlawFrame(sample)))
	}
	return pcm
}
