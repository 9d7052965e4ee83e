package ui

// Sound channel synthesis is out of scope for this emulator: the APU only
// models the register surface (NR10-NR52, wave RAM) so software that polls
// or writes those registers behaves correctly, but no PCM is generated.
// silentStream still exercises the real audio output path (ebiten's audio
// package, backed by oto/v3) by feeding it silence, so a host build links
// and plays through the platform audio backend exactly as a fully-voiced
// build would.
type silentStream struct{}

func (silentStream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
