package questions

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrInvalidQuestion = errors.New("invalid question")

// Question is one multiple-choice entry of the master bank. CorrectIndex
// refers to the canonical order of Choices.
type Question struct {
	Text         string   `yaml:"text" json:"text"`
	Choices      []string `yaml:"choices" json:"choices"`
	CorrectIndex int      `yaml:"answerIndex" json:"answerIndex"`
}

func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("%w: %q needs at least two choices", ErrInvalidQuestion, q.Text)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return fmt.Errorf("%w: %q answer index %d out of range", ErrInvalidQuestion, q.Text, q.CorrectIndex)
	}
	return nil
}

// Provider supplies the master question set. Implementations return static
// content and may be called from many goroutines.
type Provider interface {
	MasterSet() []Question
}

// StaticProvider serves a fixed slice
type StaticProvider []Question

func (p StaticProvider) MasterSet() []Question {
	return []Question(p)
}

// bankFile is either a mapping with a questions key or a bare list
type bankFile struct {
	Questions []Question `yaml:"questions"`
}

func (f *bankFile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&f.Questions)
	}
	type plain bankFile
	return node.Decode((*plain)(f))
}

// Load reads a YAML (or JSON, which is valid YAML) bank file and validates
// every entry.
func Load(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	for i, q := range file.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return file.Questions, nil
}

// FileProvider loads its bank from disk on first use and keeps it for the
// life of the process. A missing, broken or empty file falls back to Defaults.
type FileProvider struct {
	path string

	once sync.Once
	set  []Question
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) MasterSet() []Question {
	p.once.Do(func() {
		if p.path == "" {
			p.set = Defaults()
			return
		}
		set, err := Load(p.path)
		if err != nil {
			log.Warn().Err(err).Str("path", p.path).Msg("Falling back to built-in questions")
			p.set = Defaults()
			return
		}
		if len(set) == 0 {
			log.Warn().Str("path", p.path).Msg("Question bank is empty, using built-in questions")
			p.set = Defaults()
			return
		}
		log.Info().Str("path", p.path).Int("count", len(set)).Msg("Loaded question bank")
		p.set = set
	})
	return p.set
}
