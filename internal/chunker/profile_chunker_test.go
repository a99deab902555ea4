package chunker

import (
	"reflect"
	"strings"
	"testing"

	"profile-assistant/internal/profile"
)

func sampleProfile() *profile.Profile {
	return &profile.Profile{
		Personal: profile.Personal{
			Name:    "Alice",
			Title:   "Engineer",
			Summary: "Builds reliable systems.",
			Email:   "alice@example.com",
		},
		Experience: []profile.Experience{
			{
				Role:         "Staff Engineer",
				Company:      "Acme",
				Duration:     "2020-2024",
				Description:  "Platform work.",
				Achievements: []string{"Cut latency 40%", "Led migration"},
				Technologies: []string{"Go", "Postgres"},
			},
		},
		Projects: []profile.Project{
			{
				Name:       "Searchlight",
				Tagline:    "Semantic search service",
				Highlights: []string{"Sub-second queries"},
				TechStack:  []string{"Go", "Qdrant"},
				Timeframe:  "2023",
				Architecture: &profile.Architecture{
					Frontend:         "React",
					Backend:          "Go",
					CoreCapabilities: []string{"Vector search"},
				},
			},
		},
		Skills: map[string][]string{
			"technical":  {"Go", "Python"},
			"leadership": {"Mentoring"},
		},
	}
}

func TestChunk_OrderAndTypes(t *testing.T) {
	chunks := NewProfileChunker().Chunk(sampleProfile())

	wantTypes := []string{"personal", "experience", "project", "project", "skills"}
	if len(chunks) != len(wantTypes) {
		t.Fatalf("chunk count = %d, want %d", len(chunks), len(wantTypes))
	}
	for i, want := range wantTypes {
		if chunks[i].Type != want {
			t.Errorf("chunk %d type = %q, want %q", i, chunks[i].Type, want)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewProfileChunker()
	first := c.Chunk(sampleProfile())
	second := c.Chunk(sampleProfile())
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same input produced different chunk sequences")
	}
}

func TestChunk_EmptyProfileYieldsNoChunks(t *testing.T) {
	chunks := NewProfileChunker().Chunk(&profile.Profile{})
	if len(chunks) != 0 {
		t.Fatalf("empty profile produced %d chunks, want 0", len(chunks))
	}
}

func TestPersonalChunk_SkipsEmptyFields(t *testing.T) {
	chunks := NewProfileChunker().Chunk(sampleProfile())
	text := chunks[0].Text
	if !strings.Contains(text, "Name: Alice") || !strings.Contains(text, "Email: alice@example.com") {
		t.Errorf("personal chunk missing populated fields: %q", text)
	}
	if strings.Contains(text, "Phone:") || strings.Contains(text, "Location:") {
		t.Errorf("personal chunk contains empty fields: %q", text)
	}
}

func TestExperienceChunk_Metadata(t *testing.T) {
	chunks := NewProfileChunker().Chunk(sampleProfile())
	exp := chunks[1]
	if exp.Title != "Staff Engineer at Acme" {
		t.Errorf("title = %q", exp.Title)
	}
	if exp.Timeframe != "2020-2024" {
		t.Errorf("timeframe = %q", exp.Timeframe)
	}
	if !reflect.DeepEqual(exp.Tags, []string{"Go", "Postgres"}) {
		t.Errorf("tags = %v", exp.Tags)
	}
	if !strings.Contains(exp.Text, "- Cut latency 40%") {
		t.Errorf("achievements missing from text: %q", exp.Text)
	}
}

func TestArchitectureChunk(t *testing.T) {
	chunks := NewProfileChunker().Chunk(sampleProfile())
	arch := chunks[3]
	if arch.Title != "Searchlight - Architecture" {
		t.Errorf("title = %q", arch.Title)
	}
	if arch.Tags[0] != "architecture" {
		t.Errorf("first tag = %q, want architecture", arch.Tags[0])
	}
	if !strings.Contains(arch.Text, "- Vector search") {
		t.Errorf("capabilities missing: %q", arch.Text)
	}

	// No architecture section, no second chunk.
	p := sampleProfile()
	p.Projects[0].Architecture = nil
	chunks = NewProfileChunker().Chunk(p)
	for _, ch := range chunks {
		if strings.HasSuffix(ch.Title, "- Architecture") {
			t.Error("architecture chunk produced for project without details")
		}
	}
}

func TestSkillsChunk_StableCategoryOrder(t *testing.T) {
	c := NewProfileChunker()
	chunks := c.Chunk(sampleProfile())
	skills := chunks[len(chunks)-1]
	leadership := strings.Index(skills.Text, "Leadership:")
	technical := strings.Index(skills.Text, "Technical:")
	if leadership < 0 || technical < 0 {
		t.Fatalf("missing category headers: %q", skills.Text)
	}
	if leadership > technical {
		t.Errorf("categories not sorted: %q", skills.Text)
	}
}

func TestSkillsChunk_MultiByteCategoryNames(t *testing.T) {
	p := &profile.Profile{Skills: map[string][]string{
		"économie_numérique": {"FinTech"},
	}}
	chunks := NewProfileChunker().Chunk(p)
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "Économie Numérique:") {
		t.Errorf("category header not capitalized cleanly: %q", chunks[0].Text)
	}
}
