package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recsync/internal/config"
	"recsync/internal/recdb"
	"recsync/internal/testsupport"
)

func newTestEngine(t *testing.T, cfg *config.Config, probe Probe, indexer Indexer) (*Engine, *recdb.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	return New(cfg, store, probe, indexer, nil), store
}

func appendBytes(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(make([]byte, n)); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestBatchScanFinalizesOldRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	indexer := testsupport.NewFakeIndexer(0, 4.5, 9)
	engine, store := newTestEngine(t, cfg, probe, indexer)
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "show.ts")
	testsupport.WriteRecording(t, path, 10*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil {
		t.Fatalf("expected recording to be saved")
	}
	if video.Status != recdb.StatusRecorded {
		t.Errorf("status: got %q", video.Status)
	}
	if len(video.KeyFrames) != 3 {
		t.Errorf("keyframe index: got %v", video.KeyFrames)
	}
	if engine.Tracker().IsTracked(path) {
		t.Errorf("finished recording must not stay tracked")
	}
}

func TestBatchScanTracksActiveRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	indexer := testsupport.NewFakeIndexer(0)
	engine, store := newTestEngine(t, cfg, probe, indexer)
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecording {
		t.Fatalf("expected Recording status, got %#v", video)
	}
	if !engine.Tracker().IsTracked(path) {
		t.Errorf("active recording must be tracked")
	}
	if indexer.BuildCount(path) != 0 {
		t.Errorf("keyframe indexing must wait for completion")
	}
}

func TestBatchScanRecordsQuietFileAsRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	indexer := testsupport.NewFakeIndexer(0, 4.5)
	engine, store := newTestEngine(t, cfg, probe, indexer)
	ctx := context.Background()

	// Quiet for two minutes: well past the quiet period but still younger
	// than the max recording age.
	path := filepath.Join(testsupport.RecordedDir(cfg), "finished.ts")
	testsupport.WriteRecording(t, path, 2*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecorded {
		t.Fatalf("expected Recorded status, got %#v", video)
	}
	if len(video.KeyFrames) != 2 {
		t.Errorf("keyframe index: got %v", video.KeyFrames)
	}
	if engine.Tracker().IsTracked(path) {
		t.Errorf("quiet file must not be tracked")
	}
}

func TestBatchScanSkipsUnchangedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, _ := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "show.ts")
	testsupport.WriteRecording(t, path, 10*time.Minute)

	for i := 0; i < 3; i++ {
		if err := engine.BatchScan(ctx); err != nil {
			t.Fatalf("BatchScan %d: %v", i, err)
		}
	}
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}

	if got := probe.AnalyzeCount(path); got != 1 {
		t.Fatalf("unchanged file re-extracted: %d analyze calls", got)
	}
}

func TestBatchScanDeletesVanishedRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "gone.ts")
	testsupport.WriteRecording(t, path, 10*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("second scan: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video != nil {
		t.Fatalf("record for vanished file survived: %#v", video)
	}
}

func TestBatchScanIgnoresNonTargets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	dir := testsupport.RecordedDir(cfg)
	other := filepath.Join(dir, "notes.txt")
	vendor := filepath.Join(dir, "._show.ts")
	testsupport.WriteRecording(t, other, 10*time.Minute)
	testsupport.WriteRecording(t, vendor, 10*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}

	for _, path := range []string{other, vendor} {
		if got := probe.AnalyzeCount(path); got != 0 {
			t.Errorf("%s analyzed %d times", path, got)
		}
		video, err := store.GetVideoByPath(ctx, path)
		if err != nil {
			t.Fatalf("GetVideoByPath: %v", err)
		}
		if video != nil {
			t.Errorf("non-target %s was persisted", path)
		}
	}
}

func TestBatchScanSkipsSmallFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "stub.ts")
	testsupport.WriteFile(t, path, 1<<20)
	testsupport.Backdate(t, path, 10*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video != nil {
		t.Fatalf("file below fingerprint floor was persisted")
	}
	if probe.AnalyzeCount(path) != 0 {
		t.Fatalf("file below fingerprint floor was analyzed")
	}
}

func TestMinimumDurationBoundary(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		saved    bool
	}{
		{"just below minimum", 59, false},
		{"exactly minimum", 60, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			probe := testsupport.NewFakeProbe(tc.duration)
			engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
			ctx := context.Background()

			path := filepath.Join(testsupport.RecordedDir(cfg), "clip.ts")
			testsupport.WriteRecording(t, path, 10*time.Minute)

			if err := engine.BatchScan(ctx); err != nil {
				t.Fatalf("BatchScan: %v", err)
			}
			if err := engine.WaitBackground(ctx); err != nil {
				t.Fatalf("WaitBackground: %v", err)
			}

			video, err := store.GetVideoByPath(ctx, path)
			if err != nil {
				t.Fatalf("GetVideoByPath: %v", err)
			}
			if tc.saved && video == nil {
				t.Fatalf("expected recording to be saved")
			}
			if !tc.saved && video != nil {
				t.Fatalf("short recording was persisted: %#v", video)
			}
		})
	}
}

func TestShortFreshRecordingNotPersisted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(30)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	// Freshly written but still shorter than a real recording; it must not
	// enter the catalog until it crosses the minimum duration.
	path := filepath.Join(testsupport.RecordedDir(cfg), "starting.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video != nil {
		t.Fatalf("short fresh recording was persisted: %#v", video)
	}
}

func TestShortRecordingStaysTracked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(30)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "starting.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)
	engine.Tracker().Set(path, Entry{
		ModifiedAt: time.Now().Add(-5 * time.Second),
		CheckedAt:  time.Now().Add(-31 * time.Second),
		Size:       1 << 20,
	})

	if err := engine.processFile(ctx, path); err != nil {
		t.Fatalf("processFile: %v", err)
	}

	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video != nil {
		t.Fatalf("short recording was persisted: %#v", video)
	}
	if !engine.Tracker().IsTracked(path) {
		t.Fatalf("short recording must stay tracked for the sweep")
	}
}

func TestTrackedRecordingNotReanalyzed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if got := probe.AnalyzeCount(path); got != 1 {
		t.Fatalf("first scan: %d analyze calls", got)
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecording {
		t.Fatalf("expected Recording status, got %#v", video)
	}

	// A tracked file with a Recording row does not get re-probed while it
	// grows; the sweep re-probes it once after completion.
	appendBytes(t, path, 1024)
	if err := engine.processFile(ctx, path); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	if got := probe.AnalyzeCount(path); got != 1 {
		t.Fatalf("growing tracked recording re-analyzed: %d analyze calls", got)
	}
}

func TestTrackedUnchangedSizeNotReprobed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, _ := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)
	engine.Tracker().Set(path, Entry{
		ModifiedAt: time.Now().Add(-5 * time.Second),
		CheckedAt:  time.Now().Add(-31 * time.Second),
		Size:       4 << 20,
	})

	if err := engine.processFile(ctx, path); err != nil {
		t.Fatalf("processFile: %v", err)
	}
	if got := probe.AnalyzeCount(path); got != 0 {
		t.Fatalf("unchanged tracked file analyzed %d times", got)
	}
}

func TestSweepFinalizesQuietRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0, 4.5))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 10*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if !engine.Tracker().IsTracked(path) {
		t.Fatalf("expected file to be tracked after scan")
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecording {
		t.Fatalf("expected Recording status after scan, got %#v", video)
	}

	// The recorder stops writing; the first sweep notices the new mtime, the
	// second one sees a stable quiet file and finalizes it.
	testsupport.Backdate(t, path, 40*time.Second)
	engine.sweep(ctx)
	engine.sweep(ctx)
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}

	video, err = store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecorded {
		t.Fatalf("expected sweep to finalize recording, got %#v", video)
	}
	if len(video.KeyFrames) != 2 {
		t.Errorf("keyframe index: got %v", video.KeyFrames)
	}
	if engine.Tracker().IsTracked(path) {
		t.Fatalf("finalized recording still tracked")
	}
}

func TestSweepKeepsGrowingRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}

	appendBytes(t, path, 1024)

	engine.sweep(ctx)

	if !engine.Tracker().IsTracked(path) {
		t.Fatalf("growing recording must stay tracked")
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecording {
		t.Fatalf("growing recording must stay Recording, got %#v", video)
	}
}

func TestSweepRemovesVanishedRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	engine.sweep(ctx)

	if engine.Tracker().IsTracked(path) {
		t.Fatalf("vanished file still tracked")
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video != nil {
		t.Fatalf("record for vanished file survived sweep")
	}
}

func TestHandleChangeThrottlesRepeatEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "live.ts")
	testsupport.WriteRecording(t, path, 5*time.Second)

	// A burst of write events must not each run a fingerprint and extraction
	// cycle; the file just gets tracked.
	for i := 0; i < 10; i++ {
		engine.handleChange(ctx, path)
	}
	if got := probe.AnalyzeCount(path); got != 0 {
		t.Fatalf("burst of events ran extraction %d times", got)
	}
	if !engine.Tracker().IsTracked(path) {
		t.Fatalf("changed file not tracked")
	}

	appendBytes(t, path, 512)

	// Once the throttle interval has passed, the next event goes through the
	// pipeline and persists the grown recording.
	engine.Tracker().Set(path, Entry{
		ModifiedAt: time.Now().Add(-31 * time.Second),
		CheckedAt:  time.Now().Add(-31 * time.Second),
		Size:       4 << 20,
	})
	engine.handleChange(ctx, path)
	if got := probe.AnalyzeCount(path); got != 1 {
		t.Fatalf("event past the throttle interval: %d analyze calls", got)
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecording {
		t.Fatalf("expected Recording status, got %#v", video)
	}

	engine.handleChange(ctx, path)
	if got := probe.AnalyzeCount(path); got != 1 {
		t.Fatalf("throttled event still ran the pipeline: %d analyze calls", got)
	}
}

func TestHandleChangeTracksYoungFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	young := filepath.Join(testsupport.RecordedDir(cfg), "young.ts")
	testsupport.WriteRecording(t, young, 5*time.Second)
	engine.handleChange(ctx, young)
	if !engine.Tracker().IsTracked(young) {
		t.Errorf("young file must be tracked on first sight")
	}

	// Way past the max recording age: never tracked, recorded straight away.
	stale := filepath.Join(testsupport.RecordedDir(cfg), "stale.ts")
	testsupport.WriteRecording(t, stale, 400*time.Second)
	engine.handleChange(ctx, stale)
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}
	if engine.Tracker().IsTracked(stale) {
		t.Errorf("stale file must not be tracked")
	}
	video, err := store.GetVideoByPath(ctx, stale)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil || video.Status != recdb.StatusRecorded {
		t.Fatalf("expected Recorded status, got %#v", video)
	}
}

func TestRemoveFileKeepsLiveRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, store := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))
	ctx := context.Background()

	path := filepath.Join(testsupport.RecordedDir(cfg), "show.ts")
	testsupport.WriteRecording(t, path, 10*time.Minute)

	if err := engine.BatchScan(ctx); err != nil {
		t.Fatalf("BatchScan: %v", err)
	}
	if err := engine.WaitBackground(ctx); err != nil {
		t.Fatalf("WaitBackground: %v", err)
	}

	// A rename burst can deliver a Remove event for a file that still
	// exists; the record must survive.
	if err := engine.removeFile(ctx, path); err != nil {
		t.Fatalf("removeFile: %v", err)
	}
	video, err := store.GetVideoByPath(ctx, path)
	if err != nil {
		t.Fatalf("GetVideoByPath: %v", err)
	}
	if video == nil {
		t.Fatalf("live recording was deleted")
	}
}

func TestEngineStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, _ := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))

	ctx := context.Background()
	engine.Start(ctx)
	engine.Start(ctx) // second call is a no-op

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := engine.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := engine.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestEngineMarksStoppedWhenLoopsExit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probe := testsupport.NewFakeProbe(1800)
	engine, _ := newTestEngine(t, cfg, probe, testsupport.NewFakeIndexer(0))

	runCtx, cancel := context.WithCancel(context.Background())
	engine.Start(runCtx)

	// Kill the loops out from under the engine, without calling Stop.
	cancel()
	select {
	case <-engine.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("engine loops did not exit")
	}
	if engine.Running() {
		t.Fatalf("engine still reports running after its loops exited")
	}

	// A dead engine must accept a fresh Start.
	engine.Start(context.Background())
	if !engine.Running() {
		t.Fatalf("restart refused")
	}
	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := engine.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
