package knowledge_test

import (
	"testing"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/domain/knowledge"
)

func TestDocKey(t *testing.T) {
	cases := []struct {
		source, title, want string
	}{
		{"wikipedia", "长城", "doc:wikipedia:长城"},
		{"wikipedia", "Go (programming language)", "doc:wikipedia:Go (programming language)"},
		{"local", "README.md", "doc:local:README.md"},
		{"", "", "doc::"},
		{"", "title", "doc::title"},
		{"source", "", "doc:source:"},
	}
	for _, c := range cases {
		if got := knowledge.DocKey(c.source, c.title); got != c.want {
			t.Errorf("DocKey(%q, %q) = %q, want %q", c.source, c.title, got, c.want)
		}
	}
}

func TestFactKey(t *testing.T) {
	cases := []struct {
		identifier, want string
	}{
		{"纽约.坐标", "fact:纽约.坐标"},
		{"朱祁镇.父亲", "fact:朱祁镇.父亲"},
		{"population/2024", "fact:population/2024"},
		{"", "fact:"},
	}
	for _, c := range cases {
		if got := knowledge.FactKey(c.identifier); got != c.want {
			t.Errorf("FactKey(%q) = %q, want %q", c.identifier, got, c.want)
		}
	}
}

func TestSearchKey(t *testing.T) {
	if got, want := knowledge.SearchKey("wikipedia", "朱祁镇"), "search:wikipedia:朱祁镇"; got != want {
		t.Errorf("SearchKey = %q, want %q", got, want)
	}
}

func TestKeyBuildersDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if knowledge.DocKey("wiki", "page") != "doc:wiki:page" {
			t.Fatal("DocKey not stable across calls")
		}
		if knowledge.FactKey("id") != "fact:id" {
			t.Fatal("FactKey not stable across calls")
		}
	}
}

// Components are joined without escaping, so colons inside a component are
// indistinguishable from the separator. Callers own their naming.
func TestKeyColonsNotEscaped(t *testing.T) {
	a := knowledge.DocKey("a:b", "c")
	b := knowledge.DocKey("a", "b:c")
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
	if a != "doc:a:b:c" {
		t.Fatalf("unexpected key %q", a)
	}
}
