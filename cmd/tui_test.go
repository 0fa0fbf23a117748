package cmd

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spt-installer/config"
	"spt-installer/manifest"
	"spt-installer/mods"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedBrowser(rows []ModRow, actions modActions) ModBrowser {
	m := newModBrowser(actions)
	next, _ := m.Update(rowsLoadedMsg{rows: rows})
	return next.(ModBrowser)
}

func TestModRowStatus(t *testing.T) {
	tests := []struct {
		row  ModRow
		want string
	}{
		{ModRow{Installed: true, Available: true}, "installed"},
		{ModRow{Installed: true}, "installed"},
		{ModRow{Available: true}, "available"},
		{ModRow{}, "missing"},
	}
	for _, tt := range tests {
		if got := tt.row.Status(); got != tt.want {
			t.Errorf("%+v.Status() = %q, want %q", tt.row, got, tt.want)
		}
	}
}

func TestModBrowserNavigationAndSelection(t *testing.T) {
	m := loadedBrowser([]ModRow{{Name: "a", Available: true}, {Name: "b", Installed: true}}, modActions{})
	if m.loading {
		t.Fatal("loading should end after rows arrive")
	}

	next, _ := m.Update(key("up"))
	m = next.(ModBrowser)
	if m.cursor != 0 {
		t.Fatalf("cursor moved above the first row: %d", m.cursor)
	}

	next, _ = m.Update(key("j"))
	m = next.(ModBrowser)
	next, _ = m.Update(key("down"))
	m = next.(ModBrowser)
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	next, _ = m.Update(key(" "))
	m = next.(ModBrowser)
	if !m.rows[1].Selected || m.rows[0].Selected {
		t.Fatalf("space should toggle only the row under the cursor: %+v", m.rows)
	}
}

func TestModBrowserInstallOnlyAvailable(t *testing.T) {
	m := loadedBrowser([]ModRow{
		{Name: "archive", Available: true, Selected: true},
		{Name: "recorded-only", Installed: true, Selected: true},
		{Name: "unselected", Available: true},
	}, modActions{install: func([]string) string { return "done" }})

	eligible := m.selected(func(r ModRow) bool { return r.Available })
	if len(eligible) != 1 || eligible[0] != "archive" {
		t.Fatalf("selected installable = %v", eligible)
	}

	next, cmd := m.Update(key("i"))
	m = next.(ModBrowser)
	if !m.busy || cmd == nil {
		t.Fatal("install should start a background command")
	}

	next, _ = m.Update(key("j"))
	if next.(ModBrowser).cursor != 0 {
		t.Fatal("keys other than quit are ignored while busy")
	}
}

func TestModBrowserNothingSelected(t *testing.T) {
	m := loadedBrowser([]ModRow{{Name: "a", Available: true}}, modActions{})
	next, cmd := m.Update(key("u"))
	m = next.(ModBrowser)
	if cmd != nil || m.busy {
		t.Fatal("uninstall with nothing selected should not run")
	}
	if m.message != "No installed mods selected" {
		t.Fatalf("message = %q", m.message)
	}
}

func TestModBrowserActionDoneReloads(t *testing.T) {
	m := loadedBrowser([]ModRow{{Name: "a"}}, modActions{})
	m.busy = true
	next, cmd := m.Update(actionDoneMsg{message: "Installed 1/1 selected mods"})
	m = next.(ModBrowser)
	if m.busy || !m.loading || cmd == nil {
		t.Fatalf("after an action the list should reload: busy=%v loading=%v", m.busy, m.loading)
	}
	if m.message != "Installed 1/1 selected mods" {
		t.Fatalf("message = %q", m.message)
	}
}

func TestModBrowserView(t *testing.T) {
	m := loadedBrowser([]ModRow{{Name: "SAIN-3.1", Version: "3.1", Installed: true, Files: 4}}, modActions{})
	view := m.View()
	for _, want := range []string{"SAIN-3.1", "installed", "i: install"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m.err = "boom"
	if !strings.HasPrefix(m.View(), "Error: boom") {
		t.Errorf("error view = %q", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"Hello World", 5, "He..."},
		{"Hi", 5, "Hi"},
		{"Test", 4, "Test"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
		}
	}
}

func TestCollectRows(t *testing.T) {
	base := t.TempDir()
	cfg := config.Config{
		TargetSubdir: "SPT",
		ManifestFile: manifest.DefaultFileName,
		ModsDir:      filepath.Join(base, "mods"),
	}
	if err := os.MkdirAll(cfg.ModsDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Zeta-1.0.zip", "alpha-2.zip"} {
		f, err := os.Create(filepath.Join(cfg.ModsDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := zip.NewWriter(f).Close(); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	root := filepath.Join(base, "game")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	store := manifest.NewStore(cfg.ManifestFile)
	if _, err := store.Create(root, manifest.VersionInfo{Version: "4.0.6"}); err != nil {
		t.Fatal(err)
	}
	rec := manifest.ModRecord{Files: []string{"a", "b"}, Version: "2"}
	if err := store.RecordMod(root, "alpha-2", rec); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordMod(root, "gone-1", manifest.ModRecord{Files: []string{"c"}}); err != nil {
		t.Fatal(err)
	}

	a := &app{cfg: cfg, store: store, mods: mods.NewManager(cfg, store, nil)}
	rows, err := collectRows(a, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Name != "alpha-2" || !rows[0].Installed || !rows[0].Available || rows[0].Files != 2 {
		t.Errorf("alpha row = %+v", rows[0])
	}
	if rows[1].Name != "gone-1" || rows[1].Available {
		t.Errorf("gone row = %+v", rows[1])
	}
	if rows[2].Name != "Zeta-1.0" || rows[2].Installed {
		t.Errorf("zeta row = %+v", rows[2])
	}
}
