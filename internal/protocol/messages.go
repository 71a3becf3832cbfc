package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientTurn         MessageType = "client_turn"
	TypeClientControl      MessageType = "client_control"
	TypeInterviewerMessage MessageType = "interviewer_message"
	TypeClockSnapshot      MessageType = "clock_snapshot"
	TypeSystemEvent        MessageType = "system_event"
	TypeErrorEvent         MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientTurn carries one candidate answer.
type ClientTurn struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id,omitempty"`
	Input       string      `json:"input"`
	TSMs        int64       `json:"ts_ms,omitempty"`
}

// ClientControl carries out-of-band actions such as "end" or "clock".
type ClientControl struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id,omitempty"`
	Action      string      `json:"action"`
}

type InterviewerMessage struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id"`
	Text        string      `json:"text"`
	Tier        string      `json:"tier"`
	ElapsedMs   int64       `json:"elapsed_ms"`
	RemainingMs int64       `json:"remaining_ms"`
}

type ClockSnapshot struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id"`
	ElapsedMs   int64       `json:"elapsed_ms"`
	RemainingMs int64       `json:"remaining_ms"`
	Tier        string      `json:"tier"`
	Ended       bool        `json:"ended"`
}

type SystemEvent struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id"`
	Code        string      `json:"code"`
	Detail      string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type        MessageType `json:"type"`
	InterviewID string      `json:"interview_id"`
	Code        string      `json:"code"`
	Source      string      `json:"source"`
	Retryable   bool        `json:"retryable"`
	Detail      string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientTurn:
		var msg ClientTurn
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Input) == "" {
			return nil, errors.New("invalid client_turn: input is required")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case "end", "clock":
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
