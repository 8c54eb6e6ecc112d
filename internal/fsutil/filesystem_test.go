package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ReadFile(t *testing.T) {
	fs := OSFileSystem{}

	data, err := fs.ReadFile("filesystem.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("expected non-empty file content")
	}
}

func TestOSFileSystem_Glob(t *testing.T) {
	dir := t.TempDir()
	fs := OSFileSystem{}
	for i := 0; i < 5; i++ {
		if err := fs.WriteFile(filepath.Join(dir, "foo"+strconv.Itoa(i)+".glob"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := fs.WriteFile(filepath.Join(dir, "bar"+strconv.Itoa(i)+".glob"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	all, err := fs.Glob(filepath.Join(dir, "*.glob"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("expected 10 matches, got %d", len(all))
	}

	one, err := fs.Glob(filepath.Join(dir, "foo1.glob"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(one) != 1 {
		t.Errorf("expected 1 match for a literal existing file, got %d", len(one))
	}

	none, err := fs.Glob(filepath.Join(dir, "missing*.glob"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %v", none)
	}

	if _, err := fs.Glob("[bad"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	err := mfs.WriteFile("/test.txt", testData, 0644)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/p.json", []byte(`["a.las"]`), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := mfs.Open("/p.json")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != `["a.las"]` {
		t.Errorf("unexpected content %q", data)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "p.json" || info.Size() != 9 {
		t.Errorf("unexpected info %s/%d", info.Name(), info.Size())
	}

	if _, err := mfs.Open("/missing"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_StatAndExists(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/dir/a.las", []byte("abc"), 0600)

	info, err := mfs.Stat("/dir/a.las")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 3 || info.Mode() != 0600 || info.IsDir() {
		t.Errorf("unexpected info: size=%d mode=%v", info.Size(), info.Mode())
	}
	if !mfs.Exists("/dir/../dir/a.las") {
		t.Error("Exists should clean paths")
	}
	if _, err := mfs.Stat("/nope"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/d/t3.las", "/d/t1.las", "/d/t2.las", "/d/x.txt", "/e/t9.las"} {
		_ = mfs.WriteFile(name, nil, 0644)
	}

	got, err := mfs.Glob("/d/t*.las")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{"/d/t1.las", "/d/t2.las", "/d/t3.las"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if _, err := mfs.Glob("/d/[x"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}
