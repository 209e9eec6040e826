package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eringen/ogimage"
	"github.com/eringen/ogimage/thumbnail"
)

func TestPageContext(t *testing.T) {
	tests := []struct {
		kind    string
		args    []string
		want    thumbnail.PageKind
		wantErr bool
	}{
		{"listing", []string{"a", "b"}, thumbnail.PageListing, false},
		{"listing", nil, thumbnail.PageListing, false},
		{"single", []string{"hello"}, thumbnail.PageSingle, false},
		{"single", []string{"a", "b"}, thumbnail.PageSingle, true},
		{"attachment", []string{"a.jpg"}, thumbnail.PageAttachment, false},
		{"attachment", nil, thumbnail.PageAttachment, true},
		{"other", []string{"about"}, thumbnail.PageOther, false},
		{"bogus", []string{"x"}, thumbnail.PageOther, true},
	}
	for _, tt := range tests {
		pc, err := pageContext(tt.kind, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("pageContext(%q, %v) error = %v, wantErr %v", tt.kind, tt.args, err, tt.wantErr)
			continue
		}
		if err == nil && pc.Kind != tt.want {
			t.Errorf("pageContext(%q, %v).Kind = %v, want %v", tt.kind, tt.args, pc.Kind, tt.want)
		}
	}

	pc, _ := pageContext("listing", []string{"a", "b"})
	if len(pc.Items) != 2 || pc.Items[0] != "a" || pc.Items[1] != "b" {
		t.Errorf("listing items = %v, want [a b]", pc.Items)
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func useTempSite(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "blog.db")
	t.Setenv("OGIMAGE_CONFIG", "")
	t.Setenv("OGIMAGE_DATABASE_PATH", db)
	t.Setenv("OGIMAGE_SITE_URL", "https://example.com")
	t.Setenv("OGIMAGE_DEFAULT_IMAGE", "")
	return db
}

func TestDefaultSetAndGet(t *testing.T) {
	useTempSite(t)

	if _, _, err := run(t, "default", "get"); err == nil {
		t.Error("default get on an empty store should fail")
	}
	if _, _, err := run(t, "default", "set", "not a url"); err == nil {
		t.Error("default set should reject an invalid URL")
	}
	out, _, err := run(t, "default", "set", "https://cdn.example.com/og.png")
	if err != nil {
		t.Fatalf("default set failed: %v", err)
	}
	if !strings.Contains(out, "https://cdn.example.com/og.png") {
		t.Errorf("default set output = %q", out)
	}
	out, _, err = run(t, "default", "get")
	if err != nil {
		t.Fatalf("default get failed: %v", err)
	}
	if strings.TrimSpace(out) != "https://cdn.example.com/og.png" {
		t.Errorf("default get = %q", out)
	}
}

func TestDefaultSetTrimsURL(t *testing.T) {
	useTempSite(t)

	out, _, err := run(t, "default", "set", "  https://cdn.example.com/og.png ")
	if err != nil {
		t.Fatalf("default set failed: %v", err)
	}
	if out != "default image set to https://cdn.example.com/og.png\n" {
		t.Errorf("default set output = %q", out)
	}
	out, _, err = run(t, "default", "get")
	if err != nil {
		t.Fatalf("default get failed: %v", err)
	}
	if out != "https://cdn.example.com/og.png\n" {
		t.Errorf("default get = %q, want trimmed URL", out)
	}
}

func TestResolveCommand(t *testing.T) {
	db := useTempSite(t)
	t.Setenv("OGIMAGE_DEFAULT_IMAGE", "/public/default.jpg")

	store, err := ogimage.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.SavePost(ogimage.BlogPost{Slug: "hello", Title: "Hello", Date: "2024-01-01", Published: true, FeaturedImage: "hello.jpg"}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	store.Close()

	out, _, err := run(t, "resolve", "--kind", "single", "hello")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out, `<meta property="og:image" content="https://example.com/public/uploads/hello.jpg" />`) {
		t.Errorf("resolve output = %q", out)
	}
	if !strings.Contains(out, "<!-- using featured thumbnail -->") {
		t.Errorf("resolve output missing source: %q", out)
	}

	out, errOut, err := run(t, "resolve", "--kind", "other", "checkout")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(errOut, "excluded") {
		t.Errorf("stderr = %q, want exclusion note", errOut)
	}
	if !strings.Contains(out, `content="https://example.com/public/default.jpg"`) {
		t.Errorf("excluded page should print the default image: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "ogimage "+version+"\n" {
		t.Errorf("version output = %q", out)
	}
}
