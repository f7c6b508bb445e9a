package refs

import (
	"strings"
	"testing"
)

// FuzzParse verifies the classifier never panics and that successful
// classifications always carry a non-nil parameter map.
func FuzzParse(f *testing.F) {
	seeds := []string{
		"user/repo",
		"user/repo#develop/templates",
		"./templates/api",
		"~/templates",
		"/opt/templates",
		"https://github.com/user/repo.git",
		"https://github.com/user/repo/tree/main/sub",
		"https://github.com/user/repo/archive/refs/heads/main.tar.gz",
		"https://example.com/t.tar.gz",
		"registry/nextjs-app",
		"official/acme/tool",
		"user/repo?name=demo",
		"",
		"#",
		"?",
		"://",
		"a//b",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		ref, err := Parse(input)
		if err != nil {
			return
		}
		if ref == nil {
			t.Fatalf("Parse(%q) returned nil reference without error", input)
		}
		if ref.Params() == nil {
			t.Fatalf("Parse(%q) returned nil parameter map", input)
		}
		if strings.HasPrefix(input, "./") || strings.HasPrefix(input, "../") || strings.HasPrefix(input, "~/") {
			if ref.Kind() != KindLocal {
				t.Fatalf("Parse(%q) = %s, local prefixes must classify as local", input, ref.Kind())
			}
		}
	})
}
