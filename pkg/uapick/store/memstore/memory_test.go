package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/uapick/pkg/uapick/store"
)

func TestRuns_EmptyStore(t *testing.T) {
	s := New()
	_, found, err := s.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if found {
		t.Fatal("expected no run in an empty store")
	}
}

func TestRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"01A", "01B", "01C"} {
		if err := s.RecordRun(ctx, store.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "01C" || runs[1].ID != "01B" {
		t.Errorf("expected [01C 01B], got %+v", runs)
	}

	latest, found, _ := s.LatestRun(ctx)
	if !found || latest.ID != "01C" {
		t.Errorf("expected latest 01C, got %+v", latest)
	}
}

func TestRuns_IgnoresEmptyID(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.RecordRun(ctx, store.Run{})
	runs, _ := s.ListRuns(ctx, 10)
	if len(runs) != 0 {
		t.Errorf("run without ID should be ignored, got %d", len(runs))
	}
}

func TestRuns_SamplesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	samples := []store.SampleRecord{{Category: "mobile", Lines: 10}}
	s.RecordRun(ctx, store.Run{ID: "01A", Samples: samples})

	samples[0].Lines = 99
	got, _, _ := s.LatestRun(ctx)
	if got.Samples[0].Lines != 10 {
		t.Error("stored run should not alias caller's slice")
	}
}

func TestIndex_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	mtime := time.Unix(1700000000, 0)

	if _, found, _ := s.GetIndex(ctx, "out/ua.idx.json"); found {
		t.Fatal("expected cache miss")
	}

	offsets := []int64{0, 10, 20}
	s.PutIndex(ctx, "out/ua.idx.json", store.IndexRecord{ModTime: mtime, IndexSize: 8, DataSize: 30, Offsets: offsets})
	offsets[0] = 5

	rec, found, err := s.GetIndex(ctx, "out/ua.idx.json")
	if err != nil || !found {
		t.Fatalf("GetIndex: found=%v err=%v", found, err)
	}
	if !rec.ModTime.Equal(mtime) || rec.IndexSize != 8 || rec.DataSize != 30 || len(rec.Offsets) != 3 || rec.Offsets[0] != 0 {
		t.Errorf("unexpected record %+v", rec)
	}

	s.DeleteIndex(ctx, "out/ua.idx.json")
	if _, found, _ := s.GetIndex(ctx, "out/ua.idx.json"); found {
		t.Error("expected miss after delete")
	}
}
