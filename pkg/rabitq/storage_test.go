package rabitq

import "testing"

func TestSequentialStorageRawVectorRoundTrip(t *testing.T) {
	s := NewSequentialStorage(4, 64, 8)
	vec := []float32{1.5, -2.25, 0, 3.75}
	s.SetRawVector(3, vec)
	got := s.RawVector(3)
	for i, v := range vec {
		if got[i] != v {
			t.Errorf("dim %d: got %v want %v", i, got[i], v)
		}
	}
}

func TestSequentialStorageNeighborBlockRoundTrip(t *testing.T) {
	s := NewSequentialStorage(4, 64, 8)
	codes := make([]byte, s.neiCodeLen)
	for i := range codes {
		codes[i] = byte(i)
	}
	fAdd := make([]float32, DegreeBound)
	fRescale := make([]float32, DegreeBound)
	for i := 0; i < DegreeBound; i++ {
		fAdd[i] = float32(i) * 0.5
		fRescale[i] = -float32(i)
	}
	s.SetNeighborBlock(2, codes, fAdd, fRescale)

	gotCodes := s.NeighborCodeBlock(2)
	for i, c := range codes {
		if gotCodes[i] != c {
			t.Fatalf("code byte %d: got %d want %d", i, gotCodes[i], c)
		}
	}
	gotAdd := s.FAdd(2)
	gotRescale := s.FRescale(2)
	for i := 0; i < DegreeBound; i++ {
		if gotAdd[i] != fAdd[i] {
			t.Errorf("f_add[%d]: got %v want %v", i, gotAdd[i], fAdd[i])
		}
		if gotRescale[i] != fRescale[i] {
			t.Errorf("f_rescale[%d]: got %v want %v", i, gotRescale[i], fRescale[i])
		}
	}
}

func TestSequentialStorageSlotsAreDisjoint(t *testing.T) {
	s := NewSequentialStorage(4, 64, 4)
	s.SetRawVector(0, []float32{1, 1, 1, 1})
	s.SetRawVector(1, []float32{2, 2, 2, 2})
	codes := make([]byte, s.neiCodeLen)
	fAdd := make([]float32, DegreeBound)
	fRescale := make([]float32, DegreeBound)
	for i := range codes {
		codes[i] = 0xFF
	}
	s.SetNeighborBlock(0, codes, fAdd, fRescale)

	got1 := s.RawVector(1)
	for i, v := range got1 {
		if v != 2 {
			t.Fatalf("writing id 0's neighbor block corrupted id 1's raw vector at dim %d: got %v", i, v)
		}
	}
}

func TestSequentialStorageCapacityAndStride(t *testing.T) {
	s := NewSequentialStorage(4, 64, 16)
	if s.Capacity() != 16 {
		t.Fatalf("got capacity %d want 16", s.Capacity())
	}
	wantStride := 4*4 + (64*DegreeBound)/8 + DegreeBound*4 + DegreeBound*4
	if s.SlotStride() != wantStride {
		t.Fatalf("got stride %d want %d", s.SlotStride(), wantStride)
	}
	if len(s.Bytes()) != wantStride*16 {
		t.Fatalf("got arena len %d want %d", len(s.Bytes()), wantStride*16)
	}
}
