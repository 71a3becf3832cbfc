// Package prompt builds the per-interview prompt template and binds it to a
// model backend.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/interviewer/internal/llm"
)

// ErrInvalidInput reports missing interview context or an empty candidate turn.
var ErrInvalidInput = errors.New("invalid input")

// Persona is the fixed interviewer directive that opens every prompt.
const Persona = "You are an experienced interviewer. You are assigned to interview the candidate based on the job description and resume. " +
	"The interview should align with the provided job description. Start the conversation by asking a question in a professional manner. " +
	"Respond like a real person who is talking. Address the candidate by name confidently. " +
	"Always ask one question at a time to assess their strengths and fit for the role. Keep responses concise and small. " +
	"Carefully analyze the response of the candidate. If the candidate's response is not good, inform them politely. " +
	"If the candidate's response is good, appreciate it and ask them to elaborate only if necessary. " +
	"Make sure to ask questions related to the job description and resume. " +
	"Don't mention time related things like Good Morning or Good Evening. " +
	"As a good interviewer it is your responsibility to make the candidate comfortable and confident, and not to make them nervous by repeatedly saying they are not responding correctly. " +
	"If you have told the candidate their answer was off and the next answer is still off, move on to the next question. " +
	"Be polite and professional while taking the interview."

const (
	jobDescriptionPrefix = "Job Description: "
	resumePrefix         = "Resume: "
)

// EntryKind distinguishes fixed system text from the two render-time slots.
type EntryKind int

const (
	EntrySystem EntryKind = iota
	EntryHistory
	EntryInput
)

func (k EntryKind) String() string {
	switch k {
	case EntrySystem:
		return "system"
	case EntryHistory:
		return "history"
	case EntryInput:
		return "input"
	default:
		return "unknown"
	}
}

// Entry is one position of a Spec. Text is empty for placeholders.
type Entry struct {
	Kind EntryKind
	Text string
}

// Spec is the ordered, immutable prompt template for a single interview.
type Spec struct {
	entries []Entry
}

// Entries returns a copy of the template entries in order.
func (s Spec) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Render substitutes history and input into the placeholders.
func (s Spec) Render(history []llm.Message, input string) []llm.Message {
	out := make([]llm.Message, 0, len(s.entries)+len(history))
	for _, e := range s.entries {
		switch e.Kind {
		case EntrySystem:
			out = append(out, llm.Message{Role: llm.RoleSystem, Content: e.Text})
		case EntryHistory:
			out = append(out, history...)
		case EntryInput:
			out = append(out, llm.Message{Role: llm.RoleHuman, Content: input})
		}
	}
	return out
}

// Builder produces Specs. AllowEmpty accepts a blank job description or résumé.
type Builder struct {
	AllowEmpty bool
}

// Build returns the five-entry template: persona, job description, résumé,
// history slot, input slot.
func (b Builder) Build(jobDescription, resume string) (Spec, error) {
	if !b.AllowEmpty {
		if strings.TrimSpace(jobDescription) == "" {
			return Spec{}, fmt.Errorf("%w: job description is required", ErrInvalidInput)
		}
		if strings.TrimSpace(resume) == "" {
			return Spec{}, fmt.Errorf("%w: resume is required", ErrInvalidInput)
		}
	}
	return Spec{entries: []Entry{
		{Kind: EntrySystem, Text: Persona},
		{Kind: EntrySystem, Text: jobDescriptionPrefix + jobDescription},
		{Kind: EntrySystem, Text: resumePrefix + resume},
		{Kind: EntryHistory},
		{Kind: EntryInput},
	}}, nil
}
