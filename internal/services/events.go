package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mockly/apiserver/internal/mq"
	"github.com/mockly/apiserver/types"
)

// EventPublisher delivers a payload to a named broker channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// publish emits an interview event. Failures are logged and never surface to the caller.
func (s *InterviewService) publish(ctx context.Context, kind string, interview types.Interview, actorID string) {
	if s.events == nil || s.eventsChannel == "" {
		return
	}

	event := types.InterviewEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		InterviewID: interview.ID,
		UserID:      interview.UserID,
		ActorID:     actorID,
		Status:      interview.Status,
		OccurredAt:  s.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode interview event", slog.String("kind", kind), slog.Any("error", err))
		return
	}

	attrs := map[string]string{mq.AttrKind: kind, mq.AttrOrderingKey: interview.ID}
	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if _, err := s.events.Publish(publishCtx, s.eventsChannel, data, attrs); err != nil {
		s.logger.Warn("publish interview event",
			slog.String("kind", kind),
			slog.String("interview_id", interview.ID),
			slog.Any("error", err),
		)
	}
}

// DecodeEvent parses a payload produced by publish.
func DecodeEvent(data []byte) (types.InterviewEvent, error) {
	var event types.InterviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.InterviewEvent{}, err
	}
	return event, nil
}
