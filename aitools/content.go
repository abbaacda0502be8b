package aitools

import (
	"fmt"
	"strings"
)

// ChapterContent is one entry of reference material a generation stage
// can lean on when planning a curriculum.
type ChapterContent struct {
	Grade           int      `json:"grade"`
	Subject         string   `json:"subject"`
	Chapter         string   `json:"chapter"`
	ChapterNumber   int      `json:"chapter_number,omitempty"`
	Topics          []string `json:"topics"`
	ContentSummary  string   `json:"content_summary"`
	KeyConcepts     []string `json:"key_concepts"`
	ExampleProblems []string `json:"example_problems"`
}

// contentLibrary is a small built-in reference corpus. A production
// deployment would back this with an indexed content store.
var contentLibrary = []ChapterContent{
	{
		Grade:         5,
		Subject:       "Mathematics",
		Chapter:       "Fractions",
		ChapterNumber: 7,
		Topics:        []string{"Introduction to Fractions", "Equivalent Fractions", "Adding Fractions", "Subtracting Fractions"},
		ContentSummary: "This chapter introduces fractions as parts of a whole, covers equivalent fractions, " +
			"and basic operations.",
		KeyConcepts: []string{
			"A fraction represents a part of a whole",
			"The numerator indicates parts taken, denominator indicates total parts",
			"Equivalent fractions have the same value but different numerators/denominators",
		},
		ExampleProblems: []string{
			"If you eat 3 out of 8 slices of pizza, what fraction did you eat?",
			"Find three equivalent fractions of 1/2",
		},
	},
	{
		Grade:          5,
		Subject:        "Mathematics",
		Chapter:        "Decimals",
		ChapterNumber:  8,
		Topics:         []string{"Introduction to Decimals", "Decimal Places", "Comparing Decimals", "Operations with Decimals"},
		ContentSummary: "This chapter introduces decimal notation and operations with decimal numbers.",
		KeyConcepts: []string{
			"Decimals are another way to represent fractions",
			"The decimal point separates the whole number from the fractional part",
			"Place value continues to the right of decimal: tenths, hundredths, thousandths",
		},
		ExampleProblems: []string{
			"Write 3/10 as a decimal",
			"Compare 0.5 and 0.05",
		},
	},
	{
		Grade:          5,
		Subject:        "Science",
		Chapter:        "Plant Life",
		ChapterNumber:  5,
		Topics:         []string{"Parts of Plants", "Photosynthesis", "Plant Reproduction", "Importance of Plants"},
		ContentSummary: "Study of plant structure, life processes, and their importance in ecosystem.",
		KeyConcepts: []string{
			"Plants have roots, stems, leaves, flowers, and fruits",
			"Photosynthesis is how plants make food using sunlight",
			"Plants reproduce through seeds and spores",
		},
		ExampleProblems: []string{
			"Draw and label the parts of a flowering plant",
			"Explain the process of photosynthesis",
		},
	},
}

// SearchContent looks up reference material for a grade, subject and
// topic. When nothing matches it returns a placeholder entry so callers
// always get a usable structure.
func SearchContent(grade int, subject, topic string) ChapterContent {
	subject = strings.ToLower(strings.TrimSpace(subject))
	topic = strings.ToLower(strings.TrimSpace(topic))

	for _, entry := range contentLibrary {
		if entry.Grade != grade {
			continue
		}
		if !strings.Contains(strings.ToLower(entry.Subject), subject) {
			continue
		}
		for _, t := range entry.Topics {
			if strings.Contains(strings.ToLower(t), topic) {
				return entry
			}
		}
	}

	return ChapterContent{
		Grade:          grade,
		Subject:        subject,
		Chapter:        fmt.Sprintf("Content for %s not found in database", topic),
		ContentSummary: fmt.Sprintf("Please manually add content for Grade %d %s - %s", grade, subject, topic),
		Topics:         []string{},
	}
}
