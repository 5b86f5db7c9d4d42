package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Skufu/Health-Info-Assistant/internal/analysis"
	"github.com/Skufu/Health-Info-Assistant/internal/config"
	"github.com/Skufu/Health-Info-Assistant/internal/history"
	"github.com/Skufu/Health-Info-Assistant/internal/llm"
	"github.com/Skufu/Health-Info-Assistant/internal/query"
	"github.com/Skufu/Health-Info-Assistant/internal/video"
)

func TestBuildChain_WithoutKeysAnswersLocally(t *testing.T) {
	chain, err := buildChain(&config.Config{})
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	ans, err := chain.Ask(context.Background(), llm.Request{Question: "I have a headache", Prompt: llm.BuildPrompt("I have a headache")})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Source != "local" || !ans.Fallback {
		t.Fatalf("expected local fallback answer, got %+v", ans)
	}
}

func TestBuildHistory(t *testing.T) {
	s, err := buildHistory(config.HistoryConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*history.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}

	s, err = buildHistory(config.HistoryConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "h.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	s.Close()

	if _, err := buildHistory(config.HistoryConfig{Driver: "postgres"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestBuildVideoCache_DisabledRedis(t *testing.T) {
	c := buildVideoCache(&config.Config{})
	if _, ok := c.(*video.MemoryCache); !ok {
		t.Fatalf("expected MemoryCache, got %T", c)
	}
}

func TestPrintAnalysis(t *testing.T) {
	q, _ := query.Validate("severe chest pain")
	r := analysis.Analyze(analysis.Input{Query: q, Answer: "## Overview\nSee a doctor.", Source: "local", Fallback: true})

	var buf bytes.Buffer
	printAnalysis(&buf, r)
	out := buf.String()

	for _, want := range []string{"Urgency: HIGH", "== Overview ==", "See a doctor.", "== When to See a Doctor ==", analysis.Disclaimer} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
