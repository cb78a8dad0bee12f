package discover

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// alwaysIgnoredDirs are excluded regardless of .gitignore content.
var alwaysIgnoredDirs = []string{".git"}

// securityIgnoredGlobs is the fixed security list from spec §4.1:
// secrets and keys are never discovered, never hashed, never indexed.
var securityIgnoredGlobs = []string{
	".env", ".env.*",
	"*.pem", "*.key", "*.p12", "*.keystore",
	"id_rsa", "id_ed25519",
}

// IgnorePolicy decides whether a repo-relative path should be skipped
// during discovery: the fixed exclusions, the security list, an
// optional .gitignore, and an optional target-directory allow-list.
type IgnorePolicy struct {
	gitIgnore  *gitignore.GitIgnore
	allowGlobs []string // empty means "allow everything not otherwise excluded"
}

// NewIgnorePolicy builds a policy from an optional .gitignore file
// content and an optional allow-list of target directories/globs.
func NewIgnorePolicy(gitignoreContent string, allowGlobs []string) *IgnorePolicy {
	var gi *gitignore.GitIgnore
	if strings.TrimSpace(gitignoreContent) != "" {
		gi = gitignore.CompileIgnoreLines(strings.Split(gitignoreContent, "\n")...)
	}
	return &IgnorePolicy{gitIgnore: gi, allowGlobs: allowGlobs}
}

// Ignored reports whether relPath (forward-slash, repo-relative)
// should be excluded from discovery.
func (p *IgnorePolicy) Ignored(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, dir := range alwaysIgnoredDirs {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}

	base := filepath.Base(relPath)
	for _, glob := range securityIgnoredGlobs {
		if ok, _ := doublestar.Match(glob, base); ok {
			return true
		}
	}

	if p.gitIgnore != nil && p.gitIgnore.MatchesPath(relPath) {
		return true
	}

	if len(p.allowGlobs) > 0 && !p.allowed(relPath) {
		return true
	}

	return false
}

func (p *IgnorePolicy) allowed(relPath string) bool {
	for _, glob := range p.allowGlobs {
		if ok, _ := doublestar.Match(glob, relPath); ok {
			return true
		}
		// Treat a bare directory prefix as an implicit "dir/**" allow.
		if strings.HasPrefix(relPath, strings.TrimSuffix(glob, "/")+"/") {
			return true
		}
	}
	return false
}
