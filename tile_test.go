package deker

import "testing"

func TestPlanTilesSingleTile(t *testing.T) {
	recs, err := planTiles([]int{10, 10}, Bounds{{2, 5}, {3, 8}})
	if err != nil {
		t.Fatalf("planTiles: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d tile records, want 1", len(recs))
	}
	r := recs[0]
	if r.TileIndex[0] != 0 || r.TileIndex[1] != 0 {
		t.Fatalf("TileIndex = %v, want [0 0]", r.TileIndex)
	}
	if r.Inner[0] != (Bound{2, 5}) || r.Inner[1] != (Bound{3, 8}) {
		t.Fatalf("Inner = %v", r.Inner)
	}
	if r.Outer[0] != (Bound{0, 3}) || r.Outer[1] != (Bound{0, 5}) {
		t.Fatalf("Outer = %v", r.Outer)
	}
}

func TestPlanTilesSpanningMultipleTiles(t *testing.T) {
	// tiles of shape 10x10, subset spans rows [8,12) -> touches tile rows 0 and 1
	recs, err := planTiles([]int{10, 10}, Bounds{{8, 12}, {0, 10}})
	if err != nil {
		t.Fatalf("planTiles: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d tile records, want 2", len(recs))
	}
	// dimension-major order: tile 0 first, tile 1 second
	if recs[0].TileIndex[0] != 0 || recs[1].TileIndex[0] != 1 {
		t.Fatalf("tile order wrong: %+v", recs)
	}
	if recs[0].Inner[0] != (Bound{8, 10}) {
		t.Fatalf("recs[0].Inner[0] = %v, want {8 10}", recs[0].Inner[0])
	}
	if recs[0].Outer[0] != (Bound{0, 2}) {
		t.Fatalf("recs[0].Outer[0] = %v, want {0 2}", recs[0].Outer[0])
	}
	if recs[1].Inner[0] != (Bound{0, 2}) {
		t.Fatalf("recs[1].Inner[0] = %v, want {0 2}", recs[1].Inner[0])
	}
	if recs[1].Outer[0] != (Bound{2, 4}) {
		t.Fatalf("recs[1].Outer[0] = %v, want {2 4}", recs[1].Outer[0])
	}
}

func TestPlanTilesEmptyBoundsYieldsNoTiles(t *testing.T) {
	recs, err := planTiles([]int{10, 10}, Bounds{{5, 5}, {0, 10}})
	if err != nil {
		t.Fatalf("planTiles: %v", err)
	}
	if recs != nil {
		t.Fatalf("expected no tile records for an empty range, got %+v", recs)
	}
}

func TestPlanTilesMismatchedLength(t *testing.T) {
	if _, err := planTiles([]int{10}, Bounds{{0, 5}, {0, 5}}); err == nil {
		t.Fatal("expected error for mismatched arraysShape/bounds length")
	}
}

func TestOdometerAdvanceOrder(t *testing.T) {
	lo := []int{0, 0}
	hi := []int{2, 3}
	idx := []int{0, 0}

	var seen [][]int
	seen = append(seen, append([]int(nil), idx...))
	for odometerAdvance(idx, lo, hi) {
		seen = append(seen, append([]int(nil), idx...))
	}

	want := [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	if len(seen) != len(want) {
		t.Fatalf("got %d steps, want %d: %v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i][0] != want[i][0] || seen[i][1] != want[i][1] {
			t.Fatalf("step %d: got %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestFloorCeilDiv(t *testing.T) {
	if floorDiv(-1, 10) != -1 {
		t.Fatalf("floorDiv(-1, 10) = %d, want -1", floorDiv(-1, 10))
	}
	if ceilDiv(21, 10) != 3 {
		t.Fatalf("ceilDiv(21, 10) = %d, want 3", ceilDiv(21, 10))
	}
	if ceilDiv(20, 10) != 2 {
		t.Fatalf("ceilDiv(20, 10) = %d, want 2", ceilDiv(20, 10))
	}
}
