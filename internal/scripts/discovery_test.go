package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"multicam/internal/session"
)

// originalScripts は撮影用スクリプト一式のファイル名
var originalScripts = []string{
	"99.Turn_Off_Cameras.py",
	"01.goprolist_and_start_usb.py",
	"02.sync_and_record_opengo.py",
	"03.stop_record.py",
	"03.stop_record_all.py",
	"04.copy_to_pc_and_scene_sorting.py",
	"04.copy_last_to_pc_and_scene_sorting.py",
	"05.format_sd.py",
	"06.gopro_sync.py",
	"gopro_sync.py",
	"main.py",
	"README.md",
}

func writeScripts(t *testing.T, names []string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("# script\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScan(t *testing.T) {
	dir := writeScripts(t, originalScripts)

	scripts, err := Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(scripts) != 9 {
		t.Fatalf("Expected 9 numbered scripts, got %d", len(scripts))
	}

	for i := 1; i < len(scripts); i++ {
		if scripts[i-1].Prefix > scripts[i].Prefix {
			t.Errorf("Scripts not sorted: %s before %s", scripts[i-1].Name, scripts[i].Name)
		}
	}
	if scripts[len(scripts)-1].Prefix != 99 {
		t.Errorf("Expected last prefix 99, got %d", scripts[len(scripts)-1].Prefix)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := writeScripts(t, originalScripts)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Scan(ctx, dir); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"01.goprolist_and_start_usb.py", 1, true},
		{"99.Turn_Off_Cameras.py", 99, true},
		{"1.short.py", 0, false},
		{"06.gopro_sync.sh", 0, false},
		{"main.py", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractPrefix(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("extractPrefix(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBind(t *testing.T) {
	dir := writeScripts(t, originalScripts)

	b, err := Discover(context.Background(), dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := map[session.PhaseName]string{
		session.PhaseDiscover: "01.goprolist_and_start_usb.py",
		session.PhaseStart:    "02.sync_and_record_opengo.py",
		session.PhaseStop:     "03.stop_record_all.py",
		session.PhaseCopy:     "04.copy_last_to_pc_and_scene_sorting.py",
		session.PhaseSync:     "06.gopro_sync.py",
		session.PhasePowerOff: "99.Turn_Off_Cameras.py",
	}
	for phase, name := range want {
		got, ok := b.Phases[phase]
		if !ok {
			t.Errorf("Expected %s to be bound", phase)
			continue
		}
		if got.Name != name {
			t.Errorf("%s: expected %s, got %s", phase, name, got.Name)
		}
	}

	if len(b.Ignored) != 1 || b.Ignored[0].Name != "05.format_sd.py" {
		t.Errorf("Expected 05.format_sd.py to be ignored, got %v", b.Ignored)
	}
	if len(b.Alternates) != 2 {
		t.Errorf("Expected 2 alternates, got %d", len(b.Alternates))
	}
}

func TestBindingApply(t *testing.T) {
	dir := writeScripts(t, []string{"01.discover.py", "03.stop_record.py"})
	b, err := Discover(context.Background(), dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	steps := []session.Step{
		{Phase: session.PhaseDiscover},
		{Phase: session.PhaseStart},
		{Phase: session.PhaseStop, Executable: "/usr/local/bin/stop-all"},
	}
	got := b.Apply(steps, "python3")

	if got[0].Executable != "python3" || got[0].Script != filepath.Join(dir, "01.discover.py") {
		t.Errorf("Expected discover to be bound, got %+v", got[0])
	}
	if got[1].Present() {
		t.Errorf("Expected start to stay unbound, got %+v", got[1])
	}
	if got[2].Executable != "/usr/local/bin/stop-all" || got[2].Script != "" {
		t.Errorf("Expected configured stop command to be kept, got %+v", got[2])
	}
	if steps[0].Executable != "" {
		t.Error("Expected Apply not to modify its input")
	}
}
