// Package resume loads the candidate's profile from disk.
package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seekr-cli/seekr/pkg/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	ErrExtractionError   = errors.New("could not extract profile from resume")
)

// Parser turns a resume file into a structured profile.
type Parser interface {
	Parse(path string) (*models.ResumeProfile, error)
}

// JSONParser reads a profile that is already structured JSON. This is the
// default implementation; raw PDF/DOCX extraction is a separate concern.
type JSONParser struct{}

func NewParser() Parser {
	return &JSONParser{}
}

func (p *JSONParser) Parse(path string) (*models.ResumeProfile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".pdf", ".docx", ".doc", ".txt", ".md":
		return nil, fmt.Errorf("%w: %s (convert your resume to a JSON profile first)", ErrUnsupportedFormat, filepath.Ext(path))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume: %w", err)
	}

	var profile models.ResumeProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionError, err)
	}
	if err := validate(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// validate rejects profiles too thin to score or apply with.
func validate(p *models.ResumeProfile) error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrExtractionError)
	}
	if len(p.Skills) == 0 {
		return fmt.Errorf("%w: no skills listed", ErrExtractionError)
	}
	return nil
}
