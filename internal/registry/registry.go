// Package registry holds the immutable command-to-video table built at
// startup. Every referenced video is verified on disk before the service
// accepts any audio, so a broken mapping surfaces immediately instead of at
// match time.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"voice-player/internal/domain"
	"voice-player/internal/normalize"
)

type Registry struct {
	resources map[string]*domain.Resource
	tokens    []string
}

// Load builds the registry from token-to-filename mappings. Relative
// filenames resolve under dir. Tokens must already be canonical: lowercase,
// free of punctuation, a single word.
func Load(dir string, commands map[string]string) (*Registry, error) {
	const op = "registry.Load"

	if len(commands) == 0 {
		return nil, domain.New(domain.KindResourceMissing, op, "no commands configured")
	}

	resources := make(map[string]*domain.Resource, len(commands))
	tokens := make([]string, 0, len(commands))

	for token, file := range commands {
		if err := validToken(token); err != nil {
			return nil, domain.Wrap(domain.KindResourceMissing, op, fmt.Sprintf("bad command token %q", token), err)
		}
		if file == "" {
			return nil, domain.New(domain.KindResourceMissing, op, fmt.Sprintf("command %q has no video file", token))
		}

		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.Wrap(domain.KindResourceMissing, op, fmt.Sprintf("video for %q not found at %s", token, path), err)
		}
		if info.IsDir() {
			return nil, domain.New(domain.KindResourceMissing, op, fmt.Sprintf("video for %q is a directory: %s", token, path))
		}

		resources[token] = &domain.Resource{Name: token, Path: path}
		tokens = append(tokens, token)
	}

	sort.Strings(tokens)
	return &Registry{resources: resources, tokens: tokens}, nil
}

// Resolve looks a canonical token up by exact match. No fuzzy matching, no
// prefixes: "yess" does not resolve to "yes".
func (r *Registry) Resolve(token string) (*domain.Resource, bool) {
	if token == "" {
		return nil, false
	}
	res, ok := r.resources[token]
	return res, ok
}

// Tokens returns the registered command tokens in sorted order.
func (r *Registry) Tokens() []string {
	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}

func (r *Registry) Len() int {
	return len(r.tokens)
}

// validToken requires registry keys to match what the normalizer would
// produce, so a spoken command can actually reach them.
func validToken(token string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if canonical := normalize.Canonical(token); canonical != token {
		return fmt.Errorf("token %q is not canonical, want %q", token, canonical)
	}
	return nil
}
