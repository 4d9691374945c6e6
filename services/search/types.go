// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

// Document is a single course-FAQ entry as stored in the document index.
type Document struct {
	Text     string `json:"text"`
	Section  string `json:"section"`
	Question string `json:"question"`
	Course   string `json:"course"`
}

// Hit is a retrieved document together with its relevance score.
type Hit struct {
	Document
	Score float64 `json:"-"`
}

// ConversationTurn is one question/answer pair stored in the conversation
// index. Timestamp is epoch milliseconds.
type ConversationTurn struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp int64  `json:"timestamp"`
}
