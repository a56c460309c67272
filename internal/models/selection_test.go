package models

import (
	"testing"
)

func testArchive() *Archive {
	return &Archive{
		ID:           "arc_test",
		Filename:     "sample.zip",
		Videos:       []string{"v0.mp4", "v1.mp4"},
		Images:       []string{"i0.jpg"},
		PageDocs:     []string{"d0.pdf", "d1.pdf", "d2.pdf"},
		Spreadsheets: []string{"s0.xlsx"},
		Documents: []TextDocument{
			{ID: "doc_a", Name: "extra.docx", Images: []string{"e0.png", "e1.png"}},
		},
	}
}

func TestNewSelectionForArchive_Defaults(t *testing.T) {
	archive := testArchive()
	sel := NewSelectionForArchive(archive)

	if !sel.Include {
		t.Error("expected archive to be included by default")
	}
	if sel.IncludeOriginalZip {
		t.Error("expected original zip to be excluded by default")
	}

	tests := []struct {
		category Category
		want     []bool
	}{
		{CategoryVideos, []bool{true, true}},
		{CategoryImages, []bool{true}},
		{CategoryPageDocs, []bool{false, false, false}},
		{CategorySpreadsheets, []bool{true}},
		{CategoryThumbnails, []bool{}},
	}

	for _, tt := range tests {
		got := sel.Flags(tt.category)
		if len(got) != len(tt.want) {
			t.Errorf("%s: expected %d flags, got %d", tt.category, len(tt.want), len(got))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s[%d]: expected %v, got %v", tt.category, i, tt.want[i], got[i])
			}
		}
	}

	if len(sel.Documents) != 1 {
		t.Fatalf("expected 1 document selection, got %d", len(sel.Documents))
	}
	if !sel.Documents[0].IncludeText {
		t.Error("expected document text to be included by default")
	}
	if len(sel.Documents[0].Images) != 2 {
		t.Errorf("expected 2 document image flags, got %d", len(sel.Documents[0].Images))
	}
}

func TestSelection_MatchesArchive(t *testing.T) {
	archive := testArchive()
	sel := NewSelectionForArchive(archive)

	if !sel.MatchesArchive(archive) {
		t.Fatal("fresh selection should match its archive")
	}

	// Appending to assets without the paired flag append breaks the invariant
	archive.Thumbnails = append(archive.Thumbnails, "t0.jpg")
	if sel.MatchesArchive(archive) {
		t.Error("selection should not match after unpaired asset append")
	}

	sel.Thumbnails = append(sel.Thumbnails, true)
	if !sel.MatchesArchive(archive) {
		t.Error("selection should match after paired flag append")
	}

	// Document image count mismatch is also a violation
	archive.Documents[0].Images = append(archive.Documents[0].Images, "e2.png")
	if sel.MatchesArchive(archive) {
		t.Error("selection should not match after document image append")
	}
}

func TestSelection_FlagsRef(t *testing.T) {
	sel := NewSelectionForArchive(testArchive())

	ref, ok := sel.FlagsRef(CategoryPageDocs)
	if !ok {
		t.Fatal("expected pagedocs category to resolve")
	}
	(*ref)[1] = true
	if !sel.PageDocs[1] {
		t.Error("mutation through FlagsRef should be visible on the selection")
	}

	if _, ok := sel.FlagsRef(Category("bogus")); ok {
		t.Error("unknown category should not resolve")
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("category %s should be valid", c)
		}
	}
	if Category("documents").Valid() {
		t.Error("documents is not a flag category")
	}
}

func TestArchive_Failed(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{ArchiveStatusPending, false},
		{ArchiveStatusCompleted, false},
		{"failed: no primary document", true},
	}

	for _, tt := range tests {
		a := &Archive{Status: tt.status}
		if a.Failed() != tt.want {
			t.Errorf("Failed() for status %q: expected %v", tt.status, tt.want)
		}
	}
}

func TestProgressEvent_TerminalSemantics(t *testing.T) {
	if NewProgressEvent(OperationRender, 1, 4, "render", "page").IsComplete {
		t.Error("mid-run event should not be terminal")
	}
	if !NewProgressEvent(OperationRender, 4, 4, "render", "page").IsComplete {
		t.Error("current == total should be terminal")
	}
	done := CompletedEvent(OperationRender, "succeeded: 2, failed: 0")
	if !done.IsComplete {
		t.Error("completed event must be terminal")
	}
	if done.Operation != OperationRender {
		t.Errorf("unexpected operation %q", done.Operation)
	}
}
