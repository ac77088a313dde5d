package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/note/notetest"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{args: nil, wantErr: "missing input"},
		{args: []string{"-merge", "a.note"}, wantErr: "-merge needs -o"},
		{args: []string{"-o", "x.pdf", "a.note", "b.note"}, wantErr: "needs -merge"},
		{args: []string{"-workers", "-1", "a.note"}, wantErr: "negative"},
		{args: []string{"-merge", "-o", "x.pdf", "a.note", "b.note"}},
	}
	for _, tt := range tests {
		_, err := parseFlags(tt.args, io.Discard)
		switch {
		case tt.wantErr == "" && err != nil:
			t.Fatalf("parseFlags(%v) = %v", tt.args, err)
		case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
			t.Fatalf("parseFlags(%v) = %v, want %q", tt.args, err, tt.wantErr)
		}
	}
}

func TestSettingsFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"workers": 2, "pages": "1-2"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := settings(options{configPath: path, pages: "3", exact: true, excludeFailed: true, ocrLang: "eng,deu"})
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if cfg.Workers != 2 || cfg.Pages != "3" || cfg.Trace.Smooth || cfg.Policy != "exclude-failed" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Titles.Languages) != 2 {
		t.Fatalf("languages = %v", cfg.Titles.Languages)
	}
}

func writeNote(t *testing.T, dir, name string) string {
	t.Helper()
	canvas := notetest.NewCanvas(note.PageWidth, note.PageHeight)
	canvas.Fill(200, 200, 600, 400, notetest.CodeBlack)
	data := notetest.File{FileID: name, Pages: []notetest.Page{
		{ID: "P1", Layers: []notetest.Layer{{Key: "MAINLAYER", Data: canvas.RLE()}}},
	}}.Bytes()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunBatchAndMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeNote(t, dir, "a.note")
	b := writeNote(t, dir, "b.note")
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	if err := run(context.Background(), options{inputs: []string{a, b}, outDir: outDir}, &stderr); err != nil {
		t.Fatalf("batch run: %v\n%s", err, stderr.String())
	}
	for _, name := range []string{"a.pdf", "b.pdf"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Fatalf("%s: %v", name, err)
		}
	}

	merged := filepath.Join(dir, "all.pdf")
	preview := filepath.Join(dir, "preview")
	opts := options{inputs: []string{a, b}, output: merged, merge: true, preview: preview}
	if err := run(context.Background(), opts, &stderr); err != nil {
		t.Fatalf("merge run: %v\n%s", err, stderr.String())
	}
	if _, err := os.Stat(merged); err != nil {
		t.Fatalf("merged output: %v", err)
	}
	pngs, _ := filepath.Glob(filepath.Join(preview, "all-*.png"))
	if len(pngs) != 2 {
		t.Fatalf("previews = %v", pngs)
	}
}

func TestRunFailsOnCorruptInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.note")
	if err := os.WriteFile(bad, bytes.Repeat([]byte("garbage!"), 8), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "bad.pdf")
	err := run(context.Background(), options{inputs: []string{bad}, output: out}, io.Discard)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("failed run left %s", out)
	}
}
