// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"

	"github.com/coursefaq/coursefaq/services/search"
)

// promptTemplate instructs the model to answer strictly from the
// retrieved FAQ context.
const promptTemplate = `You're a course teaching assistant. Answer the QUESTION based on the CONTEXT from the FAQ database.
Use only the facts from the CONTEXT when answering the QUESTION.

QUESTION: %s

CONTEXT:
%s`

// NoContextAnswer is returned without calling the LLM when retrieval
// produced no documents.
const NoContextAnswer = "I couldn't find any relevant information in the course materials."

// BuildPrompt assembles the generation prompt from the user question and
// the retrieved FAQ snippets, preserving their retrieval order.
func BuildPrompt(question string, docs []search.Document) string {
	var context strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&context, "section: %s\nquestion: %s\nanswer: %s\n\n", doc.Section, doc.Question, doc.Text)
	}
	return strings.TrimSpace(fmt.Sprintf(promptTemplate, question, context.String()))
}
