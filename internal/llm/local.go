package llm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed local_responses.yaml
var localResponses []byte

type cannedResponse struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

type cannedFile struct {
	Default   string           `yaml:"default"`
	Responses []cannedResponse `yaml:"responses"`
}

// LocalProvider answers from a fixed set of canned responses. It never fails.
type LocalProvider struct {
	responses []cannedResponse
	fallback  string
}

// NewLocalProvider loads the built-in canned responses.
func NewLocalProvider() (*LocalProvider, error) {
	return LoadLocalProvider(localResponses)
}

// LoadLocalProvider parses canned responses from YAML.
func LoadLocalProvider(data []byte) (*LocalProvider, error) {
	var f cannedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse canned responses: %w", err)
	}
	if strings.TrimSpace(f.Default) == "" {
		return nil, errors.New("canned responses: default answer is required")
	}
	for i := range f.Responses {
		for j, k := range f.Responses[i].Keywords {
			f.Responses[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	return &LocalProvider{responses: f.Responses, fallback: strings.TrimSpace(f.Default)}, nil
}

func (p *LocalProvider) Name() string { return "local" }

// Generate picks the canned answer whose keywords best match the question.
func (p *LocalProvider) Generate(_ context.Context, req Request) (string, error) {
	if r, ok := p.match(req.Question); ok {
		return strings.TrimSpace(r.Answer), nil
	}
	return p.fallback, nil
}

// Topic returns the topic that would answer question, or "" for the default.
func (p *LocalProvider) Topic(question string) string {
	if r, ok := p.match(question); ok {
		return r.Topic
	}
	return ""
}

var questionWord = regexp.MustCompile(`[a-z][a-z']*`)

// match scores each topic by keyword hits. Single-word keywords must match a
// whole word; phrases match as substrings. Ties go to the longest keyword.
func (p *LocalProvider) match(question string) (cannedResponse, bool) {
	lower := strings.ToLower(strings.ReplaceAll(question, "’", "'"))
	words := make(map[string]bool)
	for _, w := range questionWord.FindAllString(lower, -1) {
		words[w] = true
	}

	best, bestHits, bestLen := -1, 0, 0
	for i, r := range p.responses {
		hits, longest := 0, 0
		for _, k := range r.Keywords {
			if !keywordMatches(lower, words, k) {
				continue
			}
			hits++
			if len(k) > longest {
				longest = len(k)
			}
		}
		if hits == 0 {
			continue
		}
		if hits > bestHits || (hits == bestHits && longest > bestLen) {
			best, bestHits, bestLen = i, hits, longest
		}
	}
	if best < 0 {
		return cannedResponse{}, false
	}
	return p.responses[best], true
}

func keywordMatches(lower string, words map[string]bool, keyword string) bool {
	switch {
	case keyword == "":
		return false
	case strings.Contains(keyword, " "):
		return strings.Contains(lower, keyword)
	default:
		return words[keyword]
	}
}
