// Package quizfs loads quiz documents from a YAML directory, the default
// storage for self-hosted deployments.
package quizfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
)

// Quiz references are plain filenames; anything else is rejected before it
// touches the filesystem.
var quizFilenameRe = regexp.MustCompile(`^[a-z0-9_.-]+\.(yaml|yml)$`)

// Loader reads quizzes from dir/quizzes.
type Loader struct {
	dir string
}

// NewLoader roots the loader at dataDir (typically "data").
func NewLoader(dataDir string) *Loader {
	return &Loader{dir: filepath.Join(dataDir, "quizzes")}
}

// ValidFilename reports whether ref is an acceptable quiz filename.
func ValidFilename(ref string) bool {
	return quizFilenameRe.MatchString(strings.ToLower(ref))
}

// LoadQuiz parses and validates the quiz stored under ref.
func (l *Loader) LoadQuiz(_ context.Context, ref string) (domain.Quiz, error) {
	if !ValidFilename(ref) {
		return domain.Quiz{}, fmt.Errorf("%w: bad filename %q", domain.ErrQuizNotFound, ref)
	}
	path := filepath.Join(l.dir, filepath.Base(ref))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", ref, err)
	}
	return Parse(data)
}

// Parse decodes and validates a quiz document.
func Parse(data []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrQuizInvalid, err)
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// List returns the quiz filenames available in the directory, sorted.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ValidFilename(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
