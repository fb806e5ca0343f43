package publisher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDir is used when no output directory is configured.
const DefaultDir = "output"

// Metadata is the JSON companion written next to every article. Optional
// fields are absent when the producing entry point did not supply them.
type Metadata struct {
	Topic      string  `json:"topic"`
	Audience   string  `json:"audience"`
	Tone       string  `json:"tone"`
	WordRange  *[2]int `json:"word_range,omitempty"`
	UseSearch  *bool   `json:"use_search,omitempty"`
	NumSources int     `json:"num_sources,omitempty"`
	Language   string  `json:"language,omitempty"`
	Title      string  `json:"title,omitempty"`
	Model      string  `json:"model,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// RunArtifact describes one persisted article/metadata pair.
type RunArtifact struct {
	BaseName     string
	MarkdownPath string
	MetadataPath string
	Metadata     Metadata
}

// Publisher owns the output directory: it names, writes and lists artifacts.
type Publisher struct {
	dir string
	now func() time.Time
}

// Option customizes a Publisher during construction.
type Option func(*Publisher)

// WithClock overrides the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.now = clock
		}
	}
}

// New creates a Publisher rooted at dir. The directory is created lazily on
// the first write.
func New(dir string, opts ...Option) *Publisher {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	p := &Publisher{dir: filepath.Clean(dir), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dir returns the output directory.
func (p *Publisher) Dir() string {
	return p.dir
}

// BaseName builds "{timestamp}[_{index:02d}]_{slug}". index <= 0 omits the
// batch sequence number.
func BaseName(stamp string, index int, slug string) string {
	if index > 0 {
		return fmt.Sprintf("%s_%02d_%s", stamp, index, slug)
	}
	return fmt.Sprintf("%s_%s", stamp, slug)
}

// Now returns the publisher clock's current time.
func (p *Publisher) Now() time.Time {
	return p.now()
}

// Save writes markdown and meta as a pair stamped with the current time.
func (p *Publisher) Save(markdown string, meta Metadata, index int) (RunArtifact, error) {
	return p.SaveAt(markdown, meta, "", index)
}

// SaveAt writes markdown and meta as a pair sharing one basename. An empty
// stamp means now; batches pass one stamp for all their items. The two writes
// are independent; a failure of the second leaves the first in place.
func (p *Publisher) SaveAt(markdown string, meta Metadata, stamp string, index int) (RunArtifact, error) {
	now := p.now()
	if stamp == "" {
		stamp = FormatTimestamp(now)
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = now.Format(time.RFC3339)
	}
	base := BaseName(stamp, index, Slugify(meta.Topic))
	art := RunArtifact{
		BaseName:     base,
		MarkdownPath: filepath.Join(p.dir, base+".md"),
		MetadataPath: filepath.Join(p.dir, base+".json"),
		Metadata:     meta,
	}
	if err := WriteText(art.MarkdownPath, markdown); err != nil {
		return RunArtifact{}, err
	}
	if err := WriteJSON(art.MetadataPath, meta); err != nil {
		return RunArtifact{}, err
	}
	return art, nil
}

// ErrInvalidName rejects names that would escape the output directory.
var ErrInvalidName = errors.New("publisher: invalid article name")

// Path resolves an article file name (with or without .md) inside the output
// directory.
func (p *Publisher) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	return filepath.Join(p.dir, name), nil
}

// ReadArticle returns the Markdown body of a saved article.
func (p *Publisher) ReadArticle(name string) (string, error) {
	path, err := p.Path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("publisher: read %s: %w", name, err)
	}
	return string(data), nil
}
