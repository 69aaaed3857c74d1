package audio

// HeaderSize is the canonical RIFF/WAVE header length of the plain
// 16-bit mono PCM files the music directory holds. Playback seeks past
// it and streams the raw data chunk.
const HeaderSize = 44
