package oto_test

import (
	"encoding/binary"
	"iter"
	"math"
	"testing"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/oto"
)

// rampProcessor renders a ramp continuing across calls: left is the frame
// number, right its negation.
type rampProcessor struct {
	frame int
	calls []int
	buf   *leebee.AudioBuffer
}

func (r *rampProcessor) Process(samples int, _ iter.Seq2[uint32, []byte]) *leebee.AudioBuffer {
	r.calls = append(r.calls, samples)
	if r.buf == nil {
		r.buf = leebee.NewStereoAudioBuffer(samples)
	}
	r.buf.ResetWithBufferSize(samples)
	for i := 0; i < samples; i++ {
		r.buf.Channel(0)[i] = float32(r.frame)
		r.buf.Channel(1)[i] = -float32(r.frame)
		r.frame++
	}
	return r.buf
}

type countingSource struct {
	finished int
}

func (c *countingSource) Events(int) iter.Seq2[uint32, []byte] { return leebee.NoEvents{}.Events(0) }
func (c *countingSource) FinishBlock(samples int)                { c.finished += samples }

func TestStreamInterleavesAndSplits(t *testing.T) {
	p := &rampProcessor{}
	src := &countingSource{}
	s := oto.NewStream(p, src, 4, false)
	b := make([]byte, 10*8)
	if n, err := s.Read(b); n != len(b) || err != nil {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < 10; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:]))
		if l != float32(i) || r != -float32(i) {
			t.Fatalf("frame %d = (%v, %v), want (%v, %v)", i, l, r, i, -i)
		}
	}
	if len(p.calls) != 3 || p.calls[0] != 4 || p.calls[1] != 4 || p.calls[2] != 2 {
		t.Errorf("processor called with %v, want [4 4 2]", p.calls)
	}
	if src.finished != 10 {
		t.Errorf("FinishBlock saw %d frames, want 10", src.finished)
	}
}

func TestStreamPartialFrames(t *testing.T) {
	p := &rampProcessor{}
	s := oto.NewStream(p, nil, 16, false)
	b := make([]byte, 6)
	s.Read(b)
	rest := make([]byte, 10)
	s.Read(rest)
	all := append(b, rest...)
	for i := 0; i < 2; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(all[i*8:]))
		if l != float32(i) {
			t.Errorf("frame %d left = %v, want %v", i, l, i)
		}
	}
}

func TestAppend16BitLEClamps(t *testing.T) {
	b := leebee.NewStereoAudioBuffer(3)
	copy(b.Channel(0), []float32{0.5, 2, -2})
	copy(b.Channel(1), []float32{-0.5, 1, -1})
	got := oto.Append16BitLE(nil, b, 3)
	want := []int16{16383, -16383, math.MaxInt16, math.MaxInt16, -math.MaxInt16, -math.MaxInt16}
	if len(got) != 2*len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), 2*len(want))
	}
	for i, w := range want {
		if v := int16(binary.LittleEndian.Uint16(got[2*i:])); v != w {
			t.Errorf("sample %d = %d, want %d", i, v, w)
		}
	}
}
