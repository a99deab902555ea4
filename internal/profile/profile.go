package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Personal holds the contact and summary section of a profile document.
type Personal struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`
	Phone    string `json:"phone"`
}

// Experience is a single work engagement.
type Experience struct {
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
}

// Architecture captures the optional deep-dive section of a project.
type Architecture struct {
	Frontend         string   `json:"frontend"`
	Backend          string   `json:"backend"`
	AIOrchestration  string   `json:"ai_orchestration"`
	DataLayer        string   `json:"data_layer"`
	CoreCapabilities []string `json:"core_capabilities"`
}

// Project is a single portfolio project.
type Project struct {
	Name          string        `json:"name"`
	Tagline       string        `json:"tagline"`
	Description   string        `json:"description"`
	Highlights    []string      `json:"highlights"`
	ProblemSolved string        `json:"problem_solved"`
	Impact        string        `json:"impact"`
	Context       string        `json:"context"`
	TechStack     []string      `json:"tech_stack"`
	Timeframe     string        `json:"timeframe"`
	Architecture  *Architecture `json:"architecture_details,omitempty"`
}

// Profile is the structured source document the assistant answers from.
type Profile struct {
	Personal   Personal            `json:"personal"`
	Experience []Experience        `json:"experience"`
	Projects   []Project           `json:"projects"`
	Skills     map[string][]string `json:"skills"`
}

// Load reads and parses the profile document at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile data: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile data is not valid JSON: %w", err)
	}
	return &p, nil
}

// ContextSummary renders the whole profile as a compact plain-text digest.
// It is the static grounding context used whenever retrieval is disabled or
// yields no matches.
func (p *Profile) ContextSummary() string {
	var lines []string

	name := strings.TrimSpace(p.Personal.Name)
	title := strings.TrimSpace(p.Personal.Title)
	header := joinNonEmpty([]string{name, title}, " - ")
	if header != "" {
		lines = append(lines, header)
	}
	if summary := strings.TrimSpace(p.Personal.Summary); summary != "" {
		lines = append(lines, summary)
	}

	if len(p.Experience) > 0 {
		lines = append(lines, "Experience:")
		for _, exp := range p.Experience {
			sample := exp.Achievements
			if len(sample) > 3 {
				sample = sample[:3]
			}
			line := fmt.Sprintf("- %s at %s (%s) — %s",
				exp.Role, exp.Company, exp.Duration, strings.Join(sample, "; "))
			lines = append(lines, strings.TrimSpace(line))
		}
	}

	if len(p.Projects) > 0 {
		lines = append(lines, "Projects:")
		for _, proj := range p.Projects {
			highlights := proj.Highlights
			if len(highlights) > 2 {
				highlights = highlights[:2]
			}
			line := strings.TrimSpace(fmt.Sprintf("- %s: %s", proj.Name, proj.Tagline))
			if len(highlights) > 0 {
				line += " — " + strings.Join(highlights, "; ")
			}
			lines = append(lines, line)
		}
	}

	if technical := p.Skills["technical"]; len(technical) > 0 {
		lines = append(lines, "Skills:")
		lines = append(lines, "- Technical: "+strings.Join(technical, ", "))
	}

	return strings.Join(lines, "\n")
}

// LoadSystemPrompt reads the assistant's base instructions from the data dir.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
