package collector

import "testing"

func TestRepoFilter_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		repoName string
		pattern  string
		want     bool
	}{
		{"wildcard matches all", "any-repo", "*", true},
		{"exact match", "my-repo", "my-repo", true},
		{"exact no match", "my-repo", "other-repo", false},
		{"prefix wildcard", "my-repo", "my-*", true},
		{"prefix wildcard no match", "other-repo", "my-*", false},
		{"suffix wildcard", "repo-archive", "*-archive", true},
		{"suffix wildcard no match", "repo-active", "*-archive", false},
		{"middle wildcard", "test-repo-v1", "test-*-v1", true},
		{"single char wildcard", "repo1", "repo?", true},
		{"single char wildcard no match", "repo12", "repo?", false},
		{"special chars escaped", "repo.name", "repo.name", true},
		{"special chars escaped no match", "repoXname", "repo.name", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRepoFilter([]string{tt.pattern}, nil)
			if err != nil {
				t.Fatalf("NewRepoFilter(%q) error: %v", tt.pattern, err)
			}
			if got := f.Includes(tt.repoName); got != tt.want {
				t.Errorf("Includes(%q) with %q = %v, want %v", tt.repoName, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestRepoFilter(t *testing.T) {
	tests := []struct {
		name     string
		include  []string
		exclude  []string
		repoName string
		want     bool
	}{
		{"defaults include everything", nil, nil, "any-repo", true},
		{"exclude takes precedence", nil, []string{"*-archive"}, "old-archive", false},
		{"include list", []string{"svc-*"}, nil, "svc-payments", true},
		{"not in include list", []string{"svc-*"}, nil, "website", false},
		{"regex characters are literal", []string{"a.b"}, nil, "axb", false},
		{"specific include", []string{"frontend-*", "backend-*"}, nil, "frontend-app", true},
		{"multiple excludes", []string{"*"}, []string{"*-archive", "test-*"}, "test-repo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRepoFilter(tt.include, tt.exclude)
			if err != nil {
				t.Fatalf("NewRepoFilter() error: %v", err)
			}
			if got := f.Includes(tt.repoName); got != tt.want {
				t.Errorf("Includes(%q) = %v, want %v", tt.repoName, got, tt.want)
			}
		})
	}
}

func TestRepoFilter_Nil(t *testing.T) {
	var f *RepoFilter
	if !f.Includes("anything") {
		t.Error("nil filter should include every repository")
	}
}
