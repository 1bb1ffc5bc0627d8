package history

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "sitegen-history-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(src string) Run {
	now := time.Now()
	return Run{
		SourceDir:  src,
		OutputDir:  "/out",
		Mode:       "build",
		Written:    1,
		Skipped:    1,
		StartedAt:  now,
		FinishedAt: now.Add(25 * time.Millisecond),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)
	docs := []Document{
		{Source: "src/index.rst", Output: "/out/index.html", Template: "home.html", Status: "written", Checksum: "abc"},
		{Source: "src/bad.rst", Template: "nope.html", Status: "skipped", MetadataWarning: true},
	}
	id, err := db.Record(sampleRun("src"), docs)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a run id")
	}

	runs, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.SourceDir != "src" || r.Written != 1 || r.Skipped != 1 || r.Mode != "build" {
		t.Errorf("run = %+v", r)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Errorf("times not preserved: %v -> %v", r.StartedAt, r.FinishedAt)
	}

	got, err := db.Documents(id)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("documents = %d, want 2", len(got))
	}
	if got[0] != docs[0] || got[1] != docs[1] {
		t.Errorf("documents = %+v", got)
	}
}

func TestRecordFailedRun(t *testing.T) {
	db := testDB(t)
	run := sampleRun("src")
	run.Error = "site: write /out/index.html: disk full"
	if _, err := db.Record(run, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	runs, _ := db.Recent(1)
	if len(runs) != 1 || runs[0].Error != run.Error {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	db := testDB(t)
	for _, src := range []string{"a", "b", "c"} {
		if _, err := db.Record(sampleRun(src), nil); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].SourceDir != "c" || runs[1].SourceDir != "b" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestPrune(t *testing.T) {
	db := testDB(t)
	var first int64
	for i, src := range []string{"a", "b", "c", "d"} {
		id, err := db.Record(sampleRun(src), []Document{{Source: src + ".rst", Status: "written"}})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = id
		}
	}
	n, err := db.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	runs, _ := db.Recent(10)
	if len(runs) != 2 || runs[0].SourceDir != "d" {
		t.Errorf("runs = %+v", runs)
	}
	docs, _ := db.Documents(first)
	if len(docs) != 0 {
		t.Errorf("documents of pruned run should be gone, got %d", len(docs))
	}
}

func TestPruneDisabled(t *testing.T) {
	db := testDB(t)
	_, _ = db.Record(sampleRun("a"), nil)
	n, err := db.Prune(0)
	if err != nil || n != 0 {
		t.Errorf("Prune(0) = %d, %v", n, err)
	}
}
