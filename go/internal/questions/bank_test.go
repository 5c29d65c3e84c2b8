package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBank(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	set := Defaults()
	require.GreaterOrEqual(t, len(set), 15)
	for _, q := range set {
		assert.NoError(t, q.Validate())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{name: "ok", q: Question{Text: "q", Choices: []string{"a", "b"}, CorrectIndex: 1}},
		{name: "empty text", q: Question{Choices: []string{"a", "b"}}, wantErr: true},
		{name: "one choice", q: Question{Text: "q", Choices: []string{"a"}}, wantErr: true},
		{name: "index out of range", q: Question{Text: "q", Choices: []string{"a", "b"}, CorrectIndex: 2}, wantErr: true},
		{name: "negative index", q: Question{Text: "q", Choices: []string{"a", "b"}, CorrectIndex: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuestion)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeBank(t, `
questions:
  - text: "Capital of France?"
    choices: ["Paris", "Lyon", "Nice"]
    answerIndex: 0
  - text: "2 + 2?"
    choices: ["3", "4"]
    answerIndex: 1
`)
	set, err := Load(path)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, Question{Text: "2 + 2?", Choices: []string{"3", "4"}, CorrectIndex: 1}, set[1])
}

func TestLoadJSON(t *testing.T) {
	path := writeBank(t, `{"questions":[{"text":"Up?","choices":["yes","no"],"answerIndex":0}]}`)
	set, err := Load(path)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "Up?", set[0].Text)
}

func TestLoadBareList(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json array", `[{"text":"Up?","choices":["yes","no"],"answerIndex":0}]`},
		{"yaml sequence", "- text: \"Up?\"\n  choices: [\"yes\", \"no\"]\n  answerIndex: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBank(t, tt.body)
			set, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, []Question{{Text: "Up?", Choices: []string{"yes", "no"}, CorrectIndex: 0}}, set)

			assert.Equal(t, set, NewFileProvider(path).MasterSet())
		})
	}
}

func TestLoadRejectsInvalidEntry(t *testing.T) {
	path := writeBank(t, `
questions:
  - text: "broken"
    choices: ["only"]
    answerIndex: 0
`)
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestFileProviderFallsBack(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "no path", path: func(*testing.T) string { return "" }},
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{name: "empty bank", path: func(t *testing.T) string { return writeBank(t, "questions: []\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFileProvider(tt.path(t))
			assert.Equal(t, Defaults(), p.MasterSet())
		})
	}
}

func TestFileProviderLoadsOnce(t *testing.T) {
	path := writeBank(t, `
questions:
  - text: "first"
    choices: ["a", "b"]
    answerIndex: 0
`)
	p := NewFileProvider(path)
	require.Len(t, p.MasterSet(), 1)

	require.NoError(t, os.Remove(path))
	assert.Len(t, p.MasterSet(), 1)
	assert.Equal(t, "first", p.MasterSet()[0].Text)
}
