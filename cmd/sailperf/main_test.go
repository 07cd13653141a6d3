package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sailperf/internal/config"
	"sailperf/internal/persist"
)

const threeLines = "$GPGLL,4439.1514,N,06328.3343,W,220102.5,A,A*4E\n" +
	"$SDDPT,12.3,0,210*66\n" +
	"$IIVHW,10,T,12,M,5.0,N,9.2,K*59\n"

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommand_ThreeLines(t *testing.T) {
	path := writeFile(t, "run.nmea", threeLines+"$ZZFOO,1,2,3*00\n$SDDPT,1,0,210*00\n")

	out, err := execute(t, "check", path)
	if err != nil {
		t.Fatalf("check error: %v\n%s", err, out)
	}
	for _, want := range []string{
		"lines: 5\n",
		"decoded: 3\n",
		"checksum_errors: 1\n",
		"tracks: 1\n",
		"boat_speed_log: 1\n",
		"  $ZZFOO: 1\n",
		" , depth_m=12.3\n",
		" , heading_true=10\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommand_LimitAndAlias(t *testing.T) {
	path := writeFile(t, "rot.nmea", "$TROT,-0.76,A*"+fmt.Sprintf("%02X", xor("TROT,-0.76,A"))+"\n"+threeLines)

	out, err := execute(t, "check", "--limit", "1", "--alias", "$TROT=ROT", path)
	if err != nil {
		t.Fatalf("check error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "lines: 1\n") || !strings.Contains(out, " , turnrate=-0.76\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, " $TIROT $TROT $WIMWV ") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "check", "--alias", "$TROT=NOPE", path); err == nil {
		t.Fatalf("expected error for unknown alias kind")
	}
}

func TestCheckCommand_MissingFile(t *testing.T) {
	if _, err := execute(t, "check", filepath.Join(t.TempDir(), "missing.nmea")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSummarizeCommand(t *testing.T) {
	path := writeFile(t, "capture.log", "START\n0,$SDDPT,12.3,0,210*66\n1500000000,$SDDPT,12.3,0,210*66\n2000000000,$SDDPT,1*00\n")

	out, err := execute(t, "summarize", path)
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	for _, want := range []string{"segments: 1\n", "lines: 3\n", "invalid_lines: 1\n", "max_duration: 2s\n", "  $SDDPT: 2\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunService_FileToSQLite(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, "run.nmea", threeLines+threeLines)
	dbPath := filepath.Join(dir, "sailperf.db")
	logPath := filepath.Join(dir, "sailperf.log")
	capPath := filepath.Join(dir, "capture.log")

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
log:
  level: error
sources:
  file:
    enable: true
    path: %q
storage:
  driver: sqlite
  path: %q
  log_path: %q
record:
  enable: true
  path: %q
`, input, dbPath, logPath, capPath)))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if err := runService(context.Background(), cfg); err != nil {
		t.Fatalf("runService() error: %v", err)
	}

	store, err := persist.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer store.Close()
	n, err := store.Count(context.Background(), "tracks")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Fatalf("tracks=%d want 2", n)
	}

	logBytes, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile(log) error: %v", err)
	}
	if got := strings.Count(string(logBytes), " , gpgll_time=220102.5\n"); got != 2 {
		t.Fatalf("snapshot log records=%d want 2:\n%s", got, logBytes)
	}

	out, err := execute(t, "summarize", capPath)
	if err != nil {
		t.Fatalf("summarize error: %v", err)
	}
	if !strings.Contains(out, "lines: 6\n") {
		t.Fatalf("capture summary:\n%s", out)
	}
}

func TestRunService_MissingFileFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.nmea")
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
log:
  level: error
sources:
  file:
    enable: true
    path: %q
storage:
  driver: memory
`, missing)))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	err = runService(context.Background(), cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("runService() err=%v want %v", err, os.ErrNotExist)
	}
}

func TestRunService_MissingFileStopsWeb(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.nmea")
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
log:
  level: error
sources:
  file:
    enable: true
    path: %q
storage:
  driver: memory
web:
  enable: true
  listen: 127.0.0.1:0
`, missing)))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runService(context.Background(), cfg) }()
	select {
	case err := <-done:
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("runService() err=%v want %v", err, os.ErrNotExist)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runService() did not return with no usable source")
	}
}

func TestRuntime_StatusInfo(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
sources:
  file:
    enable: true
    path: %q
storage:
  driver: sqlite
  path: %q
decoders:
  aliases:
    $TROT: ROT
`, filepath.Join(dir, "in.nmea"), filepath.Join(dir, "db.sqlite"))))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	rt, err := newRuntime(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}
	defer rt.Close()

	info := rt.webDeps(nil).Status.Snapshot(time.Time{}).Info
	ids, _ := info["decoders"].([]string)
	if !slices.Contains(ids, "$TROT") || !slices.Contains(ids, "$GPGLL") {
		t.Fatalf("decoders=%v", info["decoders"])
	}
	if info["storage_path"] != filepath.Join(dir, "db.sqlite") {
		t.Fatalf("storage_path=%v", info["storage_path"])
	}
	if _, ok := info["forward"]; ok {
		t.Fatalf("forward set without a forwarder: %v", info["forward"])
	}
}

func TestRunCommand_BadConfig(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "sources: {}\n")
	_, err := execute(t, "run", "--config", path)
	if err == nil || err.Error() != "sources: at least one source must be enabled" {
		t.Fatalf("err=%v", err)
	}
}

func xor(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}
