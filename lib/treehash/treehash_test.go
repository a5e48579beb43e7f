// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package treehash

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha\n", 0o644)
	writeFile(t, filepath.Join(root, "bin", "run.sh"), "#!/bin/sh\necho hi\n", 0o755)
	writeFile(t, filepath.Join(root, "sub", "deep", "b.txt"), "beta\n", 0o644)
	return root
}

func TestTreeDeterministic(t *testing.T) {
	root := buildTree(t)

	first, err := Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	second, err := Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	if first.Digest != second.Digest {
		t.Errorf("digest not stable: %s vs %s", first.Digest, second.Digest)
	}
	if first.Files != 3 {
		t.Errorf("Files = %d, want 3", first.Files)
	}
	if wantBytes := int64(len("alpha\n") + len("#!/bin/sh\necho hi\n") + len("beta\n")); first.Bytes != wantBytes {
		t.Errorf("Bytes = %d, want %d", first.Bytes, wantBytes)
	}
}

func TestTreeIdenticalCopiesMatch(t *testing.T) {
	first := buildTree(t)
	second := buildTree(t)

	statFirst, err := Tree(first)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	statSecond, err := Tree(second)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	if statFirst.Digest != statSecond.Digest {
		t.Errorf("identical trees hash differently: %s vs %s", statFirst.Digest, statSecond.Digest)
	}
}

func TestTreeDetectsChanges(t *testing.T) {
	root := buildTree(t)
	base, err := Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(t *testing.T)
	}{
		{"content change", func(t *testing.T) {
			writeFile(t, filepath.Join(root, "a.txt"), "ALPHA\n", 0o644)
		}},
		{"mode change", func(t *testing.T) {
			if err := os.Chmod(filepath.Join(root, "a.txt"), 0o600); err != nil {
				t.Fatalf("chmod: %v", err)
			}
		}},
		{"new file", func(t *testing.T) {
			writeFile(t, filepath.Join(root, "c.txt"), "gamma\n", 0o644)
		}},
		{"removed file", func(t *testing.T) {
			if err := os.Remove(filepath.Join(root, "sub", "deep", "b.txt")); err != nil {
				t.Fatalf("remove: %v", err)
			}
		}},
	}

	previous := base.Digest
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.mutate(t)
			stat, err := Tree(root)
			if err != nil {
				t.Fatalf("Tree: %v", err)
			}
			if stat.Digest == previous {
				t.Error("digest unchanged after mutation")
			}
			previous = stat.Digest
		})
	}
}

func TestTreeRejectsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha\n", 0o644)
	if err := os.Symlink("a.txt", filepath.Join(root, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := Tree(root); err == nil {
		t.Error("Tree accepted a tree containing a symlink")
	}
}

func TestDigestStringRoundTrip(t *testing.T) {
	root := buildTree(t)
	stat, err := Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	parsed, err := ParseDigest(stat.Digest.String())
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != stat.Digest {
		t.Errorf("ParseDigest(%s) = %s", stat.Digest, parsed)
	}

	if _, err := ParseDigest("zz"); err == nil {
		t.Error("ParseDigest accepted invalid hex")
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("ParseDigest accepted short digest")
	}
}

func TestFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f")
	writeFile(t, path, "content", 0o644)

	first, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	second, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if first != second {
		t.Error("File digest not stable")
	}

	if _, err := File(filepath.Join(root, "missing")); err == nil {
		t.Error("File accepted a missing path")
	}
}
