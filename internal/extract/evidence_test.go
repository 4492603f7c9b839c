package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/docket/internal/model"
)

func TestNormalizeEvidence_StripsHTML(t *testing.T) {
	items := NormalizeEvidence([]model.EvidenceItem{{
		Name: "letter.html",
		Type: "text/html",
		Content: `<html><head><title>ignored</title></head><body>
			<p>Dear employee,</p>
			<script>track()</script>
			<p>Your   contract ends   today.</p>
		</body></html>`,
	}}, 0)

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	want := "Dear employee, Your contract ends today."
	if items[0].Content != want {
		t.Errorf("Expected %q, got %q", want, items[0].Content)
	}
}

func TestNormalizeEvidence_PlainTextKept(t *testing.T) {
	items := NormalizeEvidence([]model.EvidenceItem{{
		Name:    " payslip ",
		Type:    "payslip",
		Content: "Net pay:\n\t 1 < 2 and 3 > 2",
	}}, 100)

	if items[0].Name != "payslip" {
		t.Errorf("Expected trimmed name, got %q", items[0].Name)
	}
	if items[0].Content != "Net pay: 1 < 2 and 3 > 2" {
		t.Errorf("Unexpected content %q", items[0].Content)
	}
}

func TestNormalizeEvidence_Truncates(t *testing.T) {
	original := []model.EvidenceItem{{Name: "a", Content: strings.Repeat("б", 50)}}
	items := NormalizeEvidence(original, 10)

	if !strings.HasSuffix(items[0].Content, " [...]") {
		t.Errorf("Expected truncation marker, got %q", items[0].Content)
	}
	if got := strings.TrimSuffix(items[0].Content, " [...]"); got != strings.Repeat("б", 10) {
		t.Errorf("Expected 10 runes kept, got %q", got)
	}
	if original[0].Content != strings.Repeat("б", 50) {
		t.Error("Input must not be modified")
	}
}

func TestNormalizeEvidence_Empty(t *testing.T) {
	items := NormalizeEvidence(nil, 0)
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", items)
	}
}

func TestDescribeEvidence(t *testing.T) {
	if got := DescribeEvidence(nil); got != "(No evidence provided)" {
		t.Errorf("Unexpected empty description %q", got)
	}

	got := DescribeEvidence([]model.EvidenceItem{
		{Name: "contract.pdf", Type: "contract", Content: "Term: 12 months"},
		{Name: "photo.jpg"},
	})
	want := "1. contract.pdf (type: contract)\n   Content: Term: 12 months\n2. photo.jpg (type: unspecified)"
	if got != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestTranscript(t *testing.T) {
	got := Transcript([]model.ConversationTurn{{Role: "user", Content: " hi "}, {Role: "assistant", Content: "hello"}})
	if got != "[user] hi\n[assistant] hello" {
		t.Errorf("Unexpected transcript %q", got)
	}
}
