package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"profile-assistant/internal/domain"
	"profile-assistant/internal/profile"
)

// ProfileChunker splits a profile document into semantic retrieval chunks:
// one personal chunk, one chunk per work experience, one or two chunks per
// project, and one skills chunk. The output order is deterministic because
// it determines vector record ids and therefore upsert idempotence.
type ProfileChunker struct{}

func NewProfileChunker() *ProfileChunker { return &ProfileChunker{} }

// Chunk produces the ordered chunk sequence for p. Empty or absent sections
// yield zero chunks, never a placeholder.
func (c *ProfileChunker) Chunk(p *profile.Profile) []domain.DocumentChunk {
	var chunks []domain.DocumentChunk

	if ch, ok := personalChunk(p.Personal); ok {
		chunks = append(chunks, ch)
	}
	for _, exp := range p.Experience {
		chunks = append(chunks, experienceChunk(exp))
	}
	for _, proj := range p.Projects {
		chunks = append(chunks, projectChunk(proj))
		if proj.Architecture != nil {
			chunks = append(chunks, architectureChunk(proj))
		}
	}
	if ch, ok := skillsChunk(p.Skills); ok {
		chunks = append(chunks, ch)
	}
	return chunks
}

func personalChunk(pers profile.Personal) (domain.DocumentChunk, bool) {
	fields := []struct{ label, value string }{
		{"Name", pers.Name},
		{"Title", pers.Title},
		{"Location", pers.Location},
		{"Summary", pers.Summary},
		{"Email", pers.Email},
		{"LinkedIn", pers.LinkedIn},
		{"Phone", pers.Phone},
	}
	var lines []string
	for _, f := range fields {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	if len(lines) == 0 {
		return domain.DocumentChunk{}, false
	}
	return domain.DocumentChunk{
		Text:  strings.Join(lines, "\n"),
		Type:  "personal",
		Title: "Personal Information",
		Tags:  []string{"contact", "summary"},
	}, true
}

func experienceChunk(exp profile.Experience) domain.DocumentChunk {
	var achievements []string
	for _, a := range exp.Achievements {
		achievements = append(achievements, "- "+a)
	}
	text := fmt.Sprintf(
		"Role: %s\nCompany: %s\nDuration: %s\nDescription: %s\n\nAchievements:\n%s\n\nTechnologies: %s",
		exp.Role, exp.Company, exp.Duration, exp.Description,
		strings.Join(achievements, "\n"),
		strings.Join(exp.Technologies, ", "),
	)
	return domain.DocumentChunk{
		Text:      strings.TrimSpace(text),
		Type:      "experience",
		Title:     fmt.Sprintf("%s at %s", exp.Role, exp.Company),
		Timeframe: exp.Duration,
		Tags:      exp.Technologies,
	}
}

func projectChunk(proj profile.Project) domain.DocumentChunk {
	var highlights []string
	for _, h := range proj.Highlights {
		highlights = append(highlights, "- "+h)
	}
	text := fmt.Sprintf(
		"Project: %s\nTagline: %s\n\nDescription:\n%s\n\nKey Highlights:\n%s\n\nProblem Solved:\n%s\n\nImpact:\n%s\n\nContext: %s\nTech Stack: %s",
		proj.Name, proj.Tagline, proj.Description,
		strings.Join(highlights, "\n"),
		proj.ProblemSolved, proj.Impact, proj.Context,
		strings.Join(proj.TechStack, ", "),
	)
	return domain.DocumentChunk{
		Text:      strings.TrimSpace(text),
		Type:      "project",
		Title:     proj.Name,
		Timeframe: proj.Timeframe,
		Tags:      proj.TechStack,
	}
}

func architectureChunk(proj profile.Project) domain.DocumentChunk {
	arch := proj.Architecture
	lines := []string{
		fmt.Sprintf("Project: %s - Architecture Details", proj.Name),
		"",
		"Frontend: " + arch.Frontend,
		"Backend: " + arch.Backend,
		"AI Orchestration: " + arch.AIOrchestration,
		"Data Layer: " + arch.DataLayer,
		"",
		"Core Capabilities:",
	}
	for _, cap := range arch.CoreCapabilities {
		lines = append(lines, "- "+cap)
	}
	return domain.DocumentChunk{
		Text:      strings.Join(lines, "\n"),
		Type:      "project",
		Title:     proj.Name + " - Architecture",
		Timeframe: proj.Timeframe,
		Tags:      append([]string{"architecture"}, proj.TechStack...),
	}
}

func skillsChunk(skills map[string][]string) (domain.DocumentChunk, bool) {
	if len(skills) == 0 {
		return domain.DocumentChunk{}, false
	}
	// Map iteration order is random; sort categories to keep output stable.
	categories := make([]string, 0, len(skills))
	for cat := range skills {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var parts []string
	for _, cat := range categories {
		parts = append(parts, titleCase(cat)+":")
		parts = append(parts, strings.Join(skills[cat], ", "))
		parts = append(parts, "")
	}
	return domain.DocumentChunk{
		Text:  strings.TrimSpace(strings.Join(parts, "\n")),
		Type:  "skills",
		Title: "Skills and Expertise",
		Tags:  []string{"skills", "technical", "leadership"},
	}, true
}

func titleCase(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
