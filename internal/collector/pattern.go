package collector

import (
	"fmt"
	"regexp"
	"strings"
)

// compilePattern converts a glob pattern to an anchored regexp.
// Supports * (any characters) and ? (single character) wildcards.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var regexPattern strings.Builder
	regexPattern.WriteString("^")

	for _, char := range pattern {
		switch char {
		case '*':
			regexPattern.WriteString(".*")
		case '?':
			regexPattern.WriteString(".")
		case '.', '+', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\':
			regexPattern.WriteRune('\\')
			regexPattern.WriteRune(char)
		default:
			regexPattern.WriteRune(char)
		}
	}

	regexPattern.WriteString("$")
	return regexp.Compile(regexPattern.String())
}

// RepoFilter is a precompiled set of include and exclude patterns. A nil
// filter includes every repository.
type RepoFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewRepoFilter compiles the patterns. No include patterns means "*".
func NewRepoFilter(includePatterns, excludePatterns []string) (*RepoFilter, error) {
	if len(includePatterns) == 0 {
		includePatterns = []string{DefaultIncludePattern}
	}
	f := &RepoFilter{}
	for _, p := range includePatterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", p, err)
		}
		f.include = append(f.include, re)
	}
	for _, p := range excludePatterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, re)
	}
	return f, nil
}

// Includes reports whether name passes the filter.
func (f *RepoFilter) Includes(name string) bool {
	if f == nil {
		return true
	}
	for _, re := range f.exclude {
		if re.MatchString(name) {
			return false
		}
	}
	for _, re := range f.include {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
