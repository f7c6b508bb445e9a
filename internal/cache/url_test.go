package cache

import "testing"

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"shorthand", "user/repo", "https://github.com/user/repo.git"},
		{"shorthand with git suffix", "user/repo.git", "https://github.com/user/repo.git"},
		{"https url unchanged", "https://github.com/user/repo.git", "https://github.com/user/repo.git"},
		{"gitlab url unchanged", "https://gitlab.com/group/project", "https://gitlab.com/group/project"},
		{"absolute path unchanged", "/opt/templates/api", "/opt/templates/api"},
		{"relative path unchanged", "./templates", "./templates"},
		{"parent path unchanged", "../templates", "../templates"},
		{"home path unchanged", "~/templates", "~/templates"},
		{"scp remote unchanged", "git@github.com:user/repo.git", "git@github.com:user/repo.git"},
		{"surrounding whitespace trimmed", "  user/repo  ", "https://github.com/user/repo.git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRepoURL(tt.input); got != tt.want {
				t.Errorf("NormalizeRepoURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProtocolFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://github.com/user/repo.git", "https"},
		{"http://example.com/repo", "http"},
		{"git://example.com/repo", "git"},
		{"ssh://git@example.com/repo", "ssh"},
		{"git@github.com:user/repo.git", "git"},
		{"/opt/templates", "local"},
		{"./templates", "local"},
		{"~/templates", "local"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ProtocolFromURL(tt.input); got != tt.want {
				t.Errorf("ProtocolFromURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://github.com/user/repo.git", "user-repo"},
		{"https://github.com/user/repo", "user-repo"},
		{"git@github.com:user/repo.git", "user-repo"},
		{"git@github.com:other/repo.git", "other-repo"},
		{"https://gitlab.com/group/project.git", "project"},
		{"/opt/templates/api", "api"},
		{"git@example.com:team/tool.git", "tool"},
		{"https://example.com/weird%20name.git", "weird-20name"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := RepoNameFromURL(tt.input); got != tt.want {
				t.Errorf("RepoNameFromURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
