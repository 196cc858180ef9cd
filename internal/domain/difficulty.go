package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the learner's grade band.
type Difficulty string

const (
	DifficultyElementary   Difficulty = "elementary"
	DifficultyMiddleSchool Difficulty = "middle-school"
	DifficultyHighSchool   Difficulty = "high-school"
	DifficultyCollege      Difficulty = "college"
)

// DefaultDifficulty applies when no preference has been stored.
const DefaultDifficulty = DifficultyHighSchool

// LanguageComplexity describes how technical the tutor's wording is.
type LanguageComplexity string

const (
	ComplexitySimple    LanguageComplexity = "simple"
	ComplexityModerate  LanguageComplexity = "moderate"
	ComplexityAdvanced  LanguageComplexity = "advanced"
	ComplexityTechnical LanguageComplexity = "technical"
)

// QuestioningIntensity describes how hard the tutor pushes.
type QuestioningIntensity string

const (
	IntensityGentle      QuestioningIntensity = "gentle"
	IntensityModerate    QuestioningIntensity = "moderate"
	IntensityChallenging QuestioningIntensity = "challenging"
	IntensityRigorous    QuestioningIntensity = "rigorous"
)

// DifficultyConfig tunes the tutor for a grade band.
type DifficultyConfig struct {
	ID          Difficulty
	Name        string
	Description string
	// HintFrequency is the number of stuck turns before hints escalate.
	HintFrequency        int
	LanguageComplexity   LanguageComplexity
	QuestioningIntensity QuestioningIntensity
}

var difficultyConfigs = map[Difficulty]DifficultyConfig{
	DifficultyElementary: {
		ID:                   DifficultyElementary,
		Name:                 "Elementary",
		Description:          "Grades K-5: Simple language, frequent hints, encouraging",
		HintFrequency:        1,
		LanguageComplexity:   ComplexitySimple,
		QuestioningIntensity: IntensityGentle,
	},
	DifficultyMiddleSchool: {
		ID:                   DifficultyMiddleSchool,
		Name:                 "Middle School",
		Description:          "Grades 6-8: Clear explanations, moderate guidance",
		HintFrequency:        2,
		LanguageComplexity:   ComplexityModerate,
		QuestioningIntensity: IntensityModerate,
	},
	DifficultyHighSchool: {
		ID:                   DifficultyHighSchool,
		Name:                 "High School",
		Description:          "Grades 9-12: Standard terminology, challenging questions",
		HintFrequency:        3,
		LanguageComplexity:   ComplexityAdvanced,
		QuestioningIntensity: IntensityChallenging,
	},
	DifficultyCollege: {
		ID:                   DifficultyCollege,
		Name:                 "College",
		Description:          "Higher education: Technical language, rigorous approach",
		HintFrequency:        4,
		LanguageComplexity:   ComplexityTechnical,
		QuestioningIntensity: IntensityRigorous,
	},
}

// Difficulties returns all grade bands from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyElementary, DifficultyMiddleSchool, DifficultyHighSchool, DifficultyCollege}
}

// Valid reports whether d is a known grade band.
func (d Difficulty) Valid() bool {
	_, ok := difficultyConfigs[d]
	return ok
}

// Config returns the tuning table entry, falling back to the default band.
func (d Difficulty) Config() DifficultyConfig {
	if c, ok := difficultyConfigs[d]; ok {
		return c
	}
	return difficultyConfigs[DefaultDifficulty]
}

// ParseDifficulty validates a difficulty string.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.TrimSpace(s))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}
