package store

import "bugfind/internal/model"

// SeedWords is the reference word list loaded into fresh stores.
func SeedWords() []model.WordEntry {
	seed := []struct {
		d     model.Difficulty
		word  string
		descr string
	}{
		{model.DifficultyBeginner, "HTML", "Markup language for web pages"},
		{model.DifficultyBeginner, "CSS", "Stylesheet language"},
		{model.DifficultyBeginner, "Variable", "Named storage for a value"},
		{model.DifficultyBeginner, "Function", "Reusable block of code"},
		{model.DifficultyBeginner, "Loop", "Repeats a block of code"},
		{model.DifficultyBeginner, "Array", "Ordered collection of values"},
		{model.DifficultyBeginner, "Boolean", "True or false"},
		{model.DifficultyBeginner, "Comment", "Note ignored by the compiler"},
		{model.DifficultyIntermediate, "React", "UI component library"},
		{model.DifficultyIntermediate, "Docker", "Container runtime"},
		{model.DifficultyIntermediate, "API", "Interface between programs"},
		{model.DifficultyIntermediate, "Git", "Distributed version control"},
		{model.DifficultyIntermediate, "REST", "Resource oriented HTTP style"},
		{model.DifficultyIntermediate, "Index", "Structure that speeds up lookups"},
		{model.DifficultyIntermediate, "Unit Test", "Test of one small piece of code"},
		{model.DifficultyIntermediate, "CI Pipeline", "Automated build and test"},
		{model.DifficultyAdvanced, "Kubernetes", "Container orchestrator"},
		{model.DifficultyAdvanced, "Microservices", "System split into small services"},
		{model.DifficultyAdvanced, "Consensus", "Agreement among distributed nodes"},
		{model.DifficultyAdvanced, "Event Sourcing", "State rebuilt from an event log"},
		{model.DifficultyAdvanced, "Service Mesh", "Infrastructure layer for service traffic"},
		{model.DifficultyAdvanced, "Sharding", "Horizontal partitioning of data"},
		{model.DifficultyAdvanced, "CAP Theorem", "Consistency, availability, partition tolerance trade-off"},
		{model.DifficultyAdvanced, "Message Queue", "Asynchronous delivery between services"},
	}
	words := make([]model.WordEntry, 0, len(seed))
	for i, s := range seed {
		words = append(words, model.WordEntry{
			ID:          int64(i + 1),
			Word:        s.word,
			Difficulty:  s.d,
			Description: s.descr,
		})
	}
	return words
}
