package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportSTL(t *testing.T) {
	d := NewDocument("Widget")
	mustBox(t, d, "Box", Vec3{}, 2, 2, 2)

	path := filepath.Join(t.TempDir(), "out.stl")
	if err := d.ExportModel("", path, ""); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "solid Widget\n") {
		t.Errorf("missing solid header: %q", text[:40])
	}
	if !strings.HasSuffix(text, "endsolid Widget\n") {
		t.Error("missing endsolid footer")
	}
	if got := strings.Count(text, "facet normal"); got != 12 {
		t.Errorf("expected 12 facets for one box, got %d", got)
	}
}

func TestExportOBJ(t *testing.T) {
	d := NewDocument("Test")
	mustBox(t, d, "A", Vec3{}, 1, 1, 1)
	mustBox(t, d, "B", Vec3{5, 0, 0}, 1, 1, 1)

	path := filepath.Join(t.TempDir(), "out.obj")
	if err := d.ExportModel("", path, "obj"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if got := strings.Count(text, "\nv "); got != 16 {
		t.Errorf("expected 16 vertices for two boxes, got %d", got)
	}
	if !strings.Contains(text, "o A\n") || !strings.Contains(text, "o B\n") {
		t.Error("object names missing from OBJ")
	}
	// Face indices for the second object must be offset past the first's verts.
	if !strings.Contains(text, "f 9 12 11 10\n") {
		t.Error("second object's faces not offset")
	}
}

func TestExportSingleObjectAndErrors(t *testing.T) {
	d := NewDocument("Test")
	mustBox(t, d, "A", Vec3{}, 1, 1, 1)
	mustBox(t, d, "B", Vec3{5, 0, 0}, 1, 1, 1)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.stl")
	if err := d.ExportModel("A", path, ""); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "facet normal"); got != 12 {
		t.Errorf("single-object export should have 12 facets, got %d", got)
	}

	if err := d.ExportModel("Ghost", filepath.Join(dir, "g.stl"), ""); err == nil {
		t.Error("missing object should fail")
	}
	if err := d.ExportModel("", filepath.Join(dir, "x.step"), ""); err == nil {
		t.Error("unsupported format should fail")
	}

	empty := NewDocument("Empty")
	if err := empty.ExportModel("", filepath.Join(dir, "e.stl"), ""); err == nil {
		t.Error("empty document should fail")
	}
}

func TestImportRoundTrip(t *testing.T) {
	d := NewDocument("Test")
	mustBox(t, d, "Box", Vec3{1, 2, 0}, 2, 4, 6)

	dir := t.TempDir()
	for _, format := range []string{"stl", "obj"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "box."+format)
			if err := d.ExportModel("Box", path, ""); err != nil {
				t.Fatal(err)
			}

			dst := NewDocument("Import")
			o, err := dst.ImportModel(path, "")
			if err != nil {
				t.Fatal(err)
			}
			if o.Name != "box" {
				t.Errorf("name from filename: got %s", o.Name)
			}
			if o.Type != "Mesh::Feature" {
				t.Errorf("type: got %s", o.Type)
			}
			l, w, h := o.Shape.Dimensions()
			approx(t, l, 2, 1e-6, "length")
			approx(t, w, 4, 1e-6, "width")
			approx(t, h, 6, 1e-6, "height")
			c := o.Shape.Center()
			approx(t, c[0], 1, 1e-6, "center x")
			approx(t, c[1], 2, 1e-6, "center y")
		})
	}
}

func TestImportErrors(t *testing.T) {
	d := NewDocument("Test")
	dir := t.TempDir()

	if _, err := d.ImportModel(filepath.Join(dir, "missing.stl"), ""); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "mesh.ply")
	if err := os.WriteFile(bad, []byte("ply\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ImportModel(bad, ""); err == nil {
		t.Error("unsupported extension should fail")
	}

	empty := filepath.Join(dir, "empty.obj")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ImportModel(empty, ""); err == nil {
		t.Error("file without vertices should fail")
	}
}
