package database

import (
	"context"
	"strings"
	"testing"
	"time"
)

var base = time.Date(2024, 5, 10, 8, 30, 0, 123456789, time.UTC)

func TestRecordRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)
	repo := NewRecordRepository(dbCtx)

	missing, err := repo.FindByID(ctx, "ley-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil record, got %#v", missing)
	}

	if err := repo.Create(ctx, "ley-1", "https://example.org/1", base); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	fetched, err := repo.FindByID(ctx, "ley-1")
	if err != nil || fetched == nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if fetched.SourceURL != "https://example.org/1" || !fetched.CreatedAt.Equal(base) {
		t.Fatalf("unexpected record: %#v", fetched)
	}

	updated, err := repo.UpdateSourceURL(ctx, "ley-1", "https://example.org/uno", base.Add(time.Hour))
	if err != nil || !updated {
		t.Fatalf("UpdateSourceURL failed: updated=%v err=%v", updated, err)
	}
	updated, err = repo.UpdateSourceURL(ctx, "ghost", "x", base)
	if err != nil || updated {
		t.Fatalf("expected no update for unknown record: updated=%v err=%v", updated, err)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 record, got %d (%v)", count, err)
	}
}

func TestSnapshotRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)
	records := NewRecordRepository(dbCtx)
	snapshots := NewSnapshotRepository(dbCtx)

	if err := records.Create(ctx, "ley-1", "", base); err != nil {
		t.Fatalf("record create failed: %v", err)
	}

	maxSeq, err := snapshots.GetMaxSequence(ctx, "ley-1")
	if err != nil || maxSeq != 0 {
		t.Fatalf("expected max sequence 0, got %d (%v)", maxSeq, err)
	}
	latest, err := snapshots.FindLatest(ctx, "ley-1")
	if err != nil || latest != nil {
		t.Fatalf("expected no latest snapshot, got %#v (%v)", latest, err)
	}

	for i, text := range []string{"uno", "dos"} {
		row := SnapshotRow{
			ID:          "snap-" + text,
			RecordID:    "ley-1",
			Sequence:    int64(i + 1),
			CapturedAt:  base.Add(time.Duration(i) * 24 * time.Hour),
			Text:        text,
			Fingerprint: strings.Repeat(string(rune('a'+i)), 64),
		}
		if err := snapshots.Create(ctx, row); err != nil {
			t.Fatalf("snapshot create %d failed: %v", i+1, err)
		}
	}

	latest, err = snapshots.FindLatest(ctx, "ley-1")
	if err != nil || latest == nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest.Sequence != 2 || latest.Text != "dos" {
		t.Fatalf("unexpected latest snapshot: %#v", latest)
	}

	first, err := snapshots.FindBySequence(ctx, "ley-1", 1)
	if err != nil || first == nil {
		t.Fatalf("FindBySequence failed: %v", err)
	}
	if !first.CapturedAt.Equal(base) {
		t.Fatalf("expected captured_at %v, got %v", base, first.CapturedAt)
	}

	at, err := snapshots.FindAt(ctx, "ley-1", base.Add(time.Hour))
	if err != nil || at == nil || at.Sequence != 1 {
		t.Fatalf("FindAt expected sequence 1, got %#v (%v)", at, err)
	}
	before, err := snapshots.FindAt(ctx, "ley-1", base.Add(-time.Nanosecond))
	if err != nil || before != nil {
		t.Fatalf("FindAt before first capture expected nil, got %#v (%v)", before, err)
	}

	metas, err := snapshots.ListMeta(ctx, "ley-1")
	if err != nil {
		t.Fatalf("ListMeta failed: %v", err)
	}
	if len(metas) != 2 || metas[0].Sequence != 1 || metas[1].Sequence != 2 || metas[0].Text != "" {
		t.Fatalf("unexpected metas: %#v", metas)
	}

	listed, err := records.List(ctx)
	if err != nil || len(listed) != 1 {
		t.Fatalf("List failed: %v (%d rows)", err, len(listed))
	}
	if listed[0].SnapshotCount != 2 || !listed[0].LastCapturedAt.Equal(base.Add(24*time.Hour)) {
		t.Fatalf("unexpected record stats: %#v", listed[0])
	}
}
