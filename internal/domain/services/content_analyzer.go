package services

// ContentAnalyzer derives the word count stored with each document from its
// markdown rendering
type ContentAnalyzer interface {
	CountWords(markdown string) int
}
