package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/interviewer/internal/protocol"
	"github.com/ent0n29/interviewer/internal/session"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// handleInterviewWS runs turns over a websocket. Turns on one connection are
// handled in arrival order; all writes go through a single writer goroutine.
func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.InterviewEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !send(protocol.ErrorEvent{
				Type:        protocol.TypeErrorEvent,
				InterviewID: id,
				Code:        "invalid_client_message",
				Source:      "gateway",
				Detail:      err.Error(),
			}) {
				break
			}
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch msg := parsed.(type) {
		case protocol.ClientTurn:
			if !s.runWSTurn(ctx, id, msg.Input, send) {
				break readLoop
			}
		case protocol.ClientControl:
			if !s.runWSControl(ctx, id, msg.Action, send) {
				break readLoop
			}
		}
	}

	// Closing outbound lets the writer flush queued events before the socket closes.
	close(outbound)
	<-writerDone
	cancel()
	s.metrics.InterviewEvents.WithLabelValues("ws_disconnected").Inc()
}

// runWSTurn reports whether the connection should stay open.
func (s *Server) runWSTurn(ctx context.Context, id, input string, send func(any) bool) bool {
	reply, err := s.interviews.HandleTurn(ctx, id, input)
	if err != nil {
		_, body := classifyError(err)
		if !send(protocol.ErrorEvent{
			Type:        protocol.TypeErrorEvent,
			InterviewID: id,
			Code:        body.Code,
			Source:      "interview",
			Retryable:   body.Retryable,
			Detail:      body.Error,
		}) {
			return false
		}
		if errors.Is(err, session.ErrInterviewEnded) {
			send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, InterviewID: id, Code: "interview_ended"})
			return false
		}
		return true
	}
	return send(protocol.InterviewerMessage{
		Type:        protocol.TypeInterviewerMessage,
		InterviewID: id,
		Text:        reply.Message.Content,
		Tier:        string(reply.Tier),
		ElapsedMs:   reply.Elapsed.Milliseconds(),
		RemainingMs: reply.Remaining.Milliseconds(),
	})
}

func (s *Server) runWSControl(ctx context.Context, id, action string, send func(any) bool) bool {
	switch action {
	case "end":
		if err := s.interviews.End(ctx, id); err != nil {
			_, body := classifyError(err)
			return send(protocol.ErrorEvent{
				Type:        protocol.TypeErrorEvent,
				InterviewID: id,
				Code:        body.Code,
				Source:      "interview",
				Detail:      body.Error,
			})
		}
		send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, InterviewID: id, Code: "interview_ended"})
		return false
	case "clock":
		snap, err := s.interviews.Clock(ctx, id)
		if err != nil {
			_, body := classifyError(err)
			return send(protocol.ErrorEvent{
				Type:        protocol.TypeErrorEvent,
				InterviewID: id,
				Code:        body.Code,
				Source:      "interview",
				Detail:      body.Error,
			})
		}
		return send(protocol.ClockSnapshot{
			Type:        protocol.TypeClockSnapshot,
			InterviewID: id,
			ElapsedMs:   snap.Elapsed.Milliseconds(),
			RemainingMs: snap.Remaining.Milliseconds(),
			Tier:        string(snap.Tier),
			Ended:       snap.Ended,
		})
	default:
		return true
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientTurn:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.InterviewerMessage:
		return m.Type, true
	case protocol.ClockSnapshot:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
