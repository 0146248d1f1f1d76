package harvest

import "testing"

func TestDedupAcceleratorMaybeSeenMark(t *testing.T) {
	d, err := newDedupAccelerator()
	if err != nil {
		t.Fatalf("newDedupAccelerator failed: %v", err)
	}
	defer d.Close()

	if d.MaybeSeen("https://example.com/x") {
		t.Fatal("expected an unmarked URI to read as not seen")
	}
	d.Mark("https://example.com/x")
	if !d.MaybeSeen("https://example.com/x") {
		t.Fatal("expected a marked URI to read as maybe seen")
	}
}

func TestDedupAcceleratorSyncsToMmapPeriodically(t *testing.T) {
	d, err := newDedupAccelerator()
	if err != nil {
		t.Fatalf("newDedupAccelerator failed: %v", err)
	}
	defer d.Close()
	d.syncEvery = 3

	before := make([]byte, len(d.mmap))
	copy(before, d.mmap)

	d.Mark("a")
	d.Mark("b")
	d.Mark("c")

	if d.count != 0 {
		t.Fatalf("expected count to reset after a sync, got %d", d.count)
	}
	after := make([]byte, len(d.mmap))
	copy(after, d.mmap)
	if string(before) == string(after) {
		t.Fatal("expected the mmap contents to change after a sync")
	}
	if err := d.LastError(); err != nil {
		t.Fatalf("unexpected sync error: %v", err)
	}
}

func TestDedupAcceleratorCloseFlushesPendingMarks(t *testing.T) {
	d, err := newDedupAccelerator()
	if err != nil {
		t.Fatalf("newDedupAccelerator failed: %v", err)
	}
	d.syncEvery = 1000
	d.Mark("pending")
	if d.count == 0 {
		t.Fatal("expected a pending unsynced mark before Close")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
