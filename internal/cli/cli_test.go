package cli

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/effects"
	"github.com/ironsheep/capture-output-mcp/internal/output"
)

// testEnv is a config file with its output and temp directories.
type testEnv struct {
	config  string
	outDir  string
	tempDir string
}

func newTestEnv(t *testing.T, extra string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		config:  filepath.Join(dir, "config.yaml"),
		outDir:  filepath.Join(dir, "out"),
		tempDir: filepath.Join(dir, "tmp"),
	}
	for _, d := range []string{env.outDir, env.tempDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	content := fmt.Sprintf(`
output:
  directory: %s
  temp_dir: %s
  filename_pattern: "${title}"
  tmpfile_ttl: 1h
%s
logging:
  level: error
  format: json
`, env.outDir, env.tempDir, extra)
	if err := os.WriteFile(env.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(BuildInfo{Version: "1.2.3"})
	var stdout, stderr bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), err
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func imageSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

func TestParseEffect(t *testing.T) {
	tests := []struct {
		in      string
		want    effects.Spec
		wantErr bool
	}{
		{in: "invert", want: effects.Spec{Name: "invert"}},
		{in: " grayscale ", want: effects.Spec{Name: "grayscale"}},
		{
			in:   "border:width=4,color=#ff0000",
			want: effects.Spec{Name: "border", Color: "#ff0000", Params: map[string]float64{"width": 4}},
		},
		{
			in:   "torn_edge:top=false, bottom=true,seed=7",
			want: effects.Spec{Name: "torn_edge", Params: map[string]float64{"top": 0, "bottom": 1, "seed": 7}},
		},
		{in: "adjust:gamma=1.5", want: effects.Spec{Name: "adjust", Params: map[string]float64{"gamma": 1.5}}},
		{in: ":width=3", wantErr: true},
		{in: "border:width", wantErr: true},
		{in: "border:=3", wantErr: true},
		{in: "border:width=wide", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseEffect(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEffect failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSaveFlagsApply(t *testing.T) {
	tests := []struct {
		name    string
		flags   saveFlags
		want    codec.Format
		quality int
		wantErr bool
	}{
		{name: "defaults", flags: saveFlags{quality: -1}, want: codec.FormatPNG, quality: 80},
		{name: "format from extension", flags: saveFlags{output: "a/b.JPEG", quality: -1}, want: codec.FormatJPG, quality: 80},
		{name: "unknown extension keeps default", flags: saveFlags{output: "a/b.webp", quality: -1}, want: codec.FormatPNG, quality: 80},
		{name: "format flag wins", flags: saveFlags{output: "a/b.jpg", format: "tiff", quality: -1}, want: codec.FormatTIFF, quality: 80},
		{name: "quality", flags: saveFlags{format: "jpg", quality: 35}, want: codec.FormatJPG, quality: 35},
		{name: "bad format", flags: saveFlags{format: "webp", quality: -1}, wantErr: true},
		{name: "bad quality", flags: saveFlags{quality: 101}, wantErr: true},
		{name: "bad palette", flags: saveFlags{quality: -1, colors: 1}, wantErr: true},
		{name: "bad effect", flags: saveFlags{quality: -1, effects: []string{"sparkle"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := output.DefaultSettings()
			err := tt.flags.apply(&s)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if s.Format != tt.want {
				t.Errorf("format = %v, want %v", s.Format, tt.want)
			}
			if s.JPEGQuality != tt.quality {
				t.Errorf("quality = %d, want %d", s.JPEGQuality, tt.quality)
			}
		})
	}
}

func TestSaveFlagsApply_Effects(t *testing.T) {
	s := output.DefaultSettings()
	f := saveFlags{quality: -1, effects: []string{"border:width=2", "invert"}}
	if err := f.apply(&s); err != nil {
		t.Fatal(err)
	}
	if len(s.Effects) != 2 {
		t.Fatalf("got %d effects, want 2", len(s.Effects))
	}
	if _, ok := s.Effects[1].(effects.Invert); !ok {
		t.Errorf("second effect = %T, want effects.Invert", s.Effects[1])
	}
}

func TestSaveCommand(t *testing.T) {
	env := newTestEnv(t, "")
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 20, 10, color.NRGBA{255, 255, 255, 255})

	dst := filepath.Join(env.outDir, "report.jpg")
	out, err := execute(t, "--config", env.config, "save", src,
		"-o", dst, "--effect", "border:width=3,color=#ff0000")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(out, dst+" (jpg, ") {
		t.Errorf("unexpected output: %q", out)
	}
	if got := imageSize(t, dst); got != image.Pt(26, 16) {
		t.Errorf("size = %v, want (26,16)", got)
	}

	// Without --overwrite the config default refuses to replace the file.
	if _, err := execute(t, "--config", env.config, "save", src, "-o", dst); err == nil {
		t.Error("expected error when the output exists")
	}
	if _, err := execute(t, "--config", env.config, "save", src, "-o", dst, "--overwrite"); err != nil {
		t.Errorf("save with --overwrite failed: %v", err)
	}
	if got := imageSize(t, dst); got != image.Pt(20, 10) {
		t.Errorf("size after overwrite = %v, want (20,10)", got)
	}
}

func TestSaveCommand_DefaultTarget(t *testing.T) {
	env := newTestEnv(t, "")
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 8, 8, color.NRGBA{0, 0, 255, 255})

	if _, err := execute(t, "--config", env.config, "save", src, "--title", "Board"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.outDir, "Board.png")); err != nil {
		t.Errorf("expected file from the name pattern: %v", err)
	}
}

func TestSaveCommand_Tmp(t *testing.T) {
	env := newTestEnv(t, "")
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 8, 8, color.NRGBA{0, 255, 0, 255})

	out, err := execute(t, "--config", env.config, "save", src, "--tmp", "--format", "gif")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	path := strings.Fields(out)[0]
	if filepath.Dir(path) != env.tempDir {
		t.Errorf("tmp file %s not in %s", path, env.tempDir)
	}
	if filepath.Ext(path) != ".gif" {
		t.Errorf("tmp file %s should have the gif extension", path)
	}
}

func TestSaveCommand_FlagConflicts(t *testing.T) {
	env := newTestEnv(t, "")
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 4, 4, color.NRGBA{0, 0, 0, 255})

	tests := [][]string{
		{"-o", filepath.Join(env.outDir, "x.png"), "--tmp"},
		{"--reduce-colors", "--no-reduce-colors"},
	}
	for _, extra := range tests {
		args := append([]string{"--config", env.config, "save", src}, extra...)
		if _, err := execute(t, args...); err == nil {
			t.Errorf("expected error for %v", extra)
		}
	}
}

func TestLoadCommand(t *testing.T) {
	env := newTestEnv(t, "")
	dir := t.TempDir()
	src := filepath.Join(dir, "shot.png")
	writePNG(t, src, 30, 20, color.NRGBA{255, 255, 255, 255})
	annotations := filepath.Join(dir, "annotations.json")
	data := `[{"kind":"rectangle","x":2,"y":3,"width":5,"height":6,"fill_color":"#0000ff"}]`
	if err := os.WriteFile(annotations, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	container := filepath.Join(env.outDir, "shot.greenshot")
	if _, err := execute(t, "--config", env.config, "save", src, "-o", container, "--annotations", annotations); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := execute(t, "--config", env.config, "load", container)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	var report loadReport
	if err := yaml.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if report.Width != 30 || report.Height != 20 {
		t.Errorf("size = %dx%d, want 30x20", report.Width, report.Height)
	}
	if report.Footer.Version == "" || report.Footer.BlockLength <= 0 {
		t.Errorf("unexpected footer: %+v", report.Footer)
	}
	if len(report.Elements) != 1 || report.Elements[0].FillColor != "#0000ff" || report.Elements[0].Y != 3 {
		t.Errorf("unexpected elements: %+v", report.Elements)
	}

	if _, err := execute(t, "--config", env.config, "load", src); err == nil {
		t.Error("expected error for a plain PNG")
	}
}

func TestCleanupCommand(t *testing.T) {
	env := newTestEnv(t, "")
	old := filepath.Join(env.tempDir, "old.png")
	fresh := filepath.Join(env.tempDir, "fresh.png")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", env.config, "cleanup")
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !strings.HasPrefix(out, "removed 1 file(s)") {
		t.Errorf("unexpected output: %q", out)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file should be kept")
	}

	out, err = execute(t, "--config", env.config, "cleanup", "--all")
	if err != nil {
		t.Fatalf("cleanup --all failed: %v", err)
	}
	if !strings.HasPrefix(out, "removed 1 file(s)") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	// version runs without reading the config.
	out, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	want := "capture-output-mcp 1.2.3\n  Build time: unknown\n  Git commit: unknown\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "  format: webp")
	src := filepath.Join(t.TempDir(), "shot.png")
	writePNG(t, src, 4, 4, color.NRGBA{0, 0, 0, 255})

	if _, err := execute(t, "--config", env.config, "save", src); err == nil {
		t.Error("expected config error")
	}
	if _, err := execute(t, "--config", env.config, "--log-level", "loud", "version"); err != nil {
		t.Errorf("version should not load the config: %v", err)
	}
}
