package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageTurn(t *testing.T) {
	raw := []byte(`{"type":"client_turn","interview_id":"iv1","input":"I shipped the payments API.","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	turn, ok := msg.(ClientTurn)
	if !ok {
		t.Fatalf("message type = %T, want ClientTurn", msg)
	}
	if turn.Input != "I shipped the payments API." || turn.TSMs != 123 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestParseClientMessageRejectsBlankTurn(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_turn","input":"   "}`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error for blank input")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":"end"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	control, ok := msg.(ClientControl)
	if !ok || control.Action != "end" {
		t.Fatalf("unexpected control: %#v", msg)
	}

	if _, err := ParseClientMessage([]byte(`{"type":"client_control","action":"approve_task_step"}`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error for unknown action")
	}
}

func TestParseClientMessageInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error")
	}
}
