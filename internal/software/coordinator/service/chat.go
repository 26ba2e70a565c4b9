package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"

	"github.com/google/uuid"
)

// SendMessage appends one message to the ride's channel. Appends serialize on
// the ride lock; assigned timestamps never decrease (equal wall-clock reads
// get a logical bump) and Seq breaks any remaining tie, so the transcript has
// one total order that every observer sees.
func (service *coordinatorService) SendMessage(ctx context.Context, in ports.SendMessageInput) (ports.SendMessageResult, error) {
	ctx = service.logger.WithRideID(ctx, in.RideID)

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.SendMessageResult{}, err
	}

	msg, err := chat.NewMessage(in.RideID, in.SenderID, in.Text)
	if err != nil {
		return ports.SendMessageResult{}, err
	}
	msg.ID = uuid.NewString()

	rideEnt.mu.Lock()
	if in.SenderID != rideEnt.r.PassengerID && !rideEnt.r.AssignedTo(in.SenderID) {
		rideEnt.mu.Unlock()
		return ports.SendMessageResult{}, ride.ErrNotParticipant
	}
	// sends need an active ride; the transcript stays readable afterwards
	if !rideEnt.r.Status.Active() {
		rideEnt.mu.Unlock()
		return ports.SendMessageResult{}, ride.ErrInvalidTransition
	}

	// enforce per-ride monotonic timestamps
	msg.CreatedAt = time.Now().UTC()
	if !msg.CreatedAt.After(rideEnt.lastChatAt) {
		msg.CreatedAt = rideEnt.lastChatAt.Add(time.Nanosecond)
	}
	rideEnt.lastChatAt = msg.CreatedAt
	rideEnt.chatSeq++
	msg.Seq = rideEnt.chatSeq

	rideEnt.messages = append(rideEnt.messages, msg)
	transcript := cloneTranscript(rideEnt.messages)
	rideEnt.mu.Unlock()

	corrID := generateCorrelationID()
	service.emit(ctx, contracts.CoreEvent{
		Kind:   contracts.EventChatMessage,
		RideID: in.RideID,
		Payload: contracts.ChatMessagePayload{
			MessageID: msg.ID,
			RideID:    msg.RideID,
			SenderID:  msg.SenderID,
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
		},
		Envelope: newEnvelope(corrID),
	})

	// every subscriber gets the full refreshed transcript
	service.pushChatSnapshot(in.RideID, transcript, corrID)

	return ports.SendMessageResult{
		MessageID: msg.ID,
		RideID:    msg.RideID,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// Transcript returns the ordered transcript of one ride.
func (service *coordinatorService) Transcript(ctx context.Context, rideID string) ([]*chat.Message, error) {
	rideEnt, err := service.rideByID(rideID)
	if err != nil {
		return nil, err
	}

	rideEnt.mu.Lock()
	defer rideEnt.mu.Unlock()
	return cloneTranscript(rideEnt.messages), nil
}

// SubscribeChat opens a transcript snapshot stream for a ride participant.
// The stream is seeded with the current transcript immediately.
func (service *coordinatorService) SubscribeChat(ctx context.Context, rideID, actorID string) (ports.ChatSubscription, error) {
	rideEnt, err := service.rideByID(rideID)
	if err != nil {
		return nil, err
	}

	rideEnt.mu.Lock()
	if actorID != rideEnt.r.PassengerID && !rideEnt.r.AssignedTo(actorID) {
		rideEnt.mu.Unlock()
		return nil, ride.ErrNotParticipant
	}
	transcript := cloneTranscript(rideEnt.messages)
	rideEnt.mu.Unlock()

	var sub *subscription[chatSnapshot]
	sub = newSubscription[chatSnapshot](service.opts.SubscriptionBuffer, func() {
		service.subsMu.Lock()
		if set, ok := service.chatSubs[rideID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(service.chatSubs, rideID)
			}
		}
		service.subsMu.Unlock()
	})

	service.subsMu.Lock()
	if service.chatSubs[rideID] == nil {
		service.chatSubs[rideID] = make(map[*subscription[chatSnapshot]]struct{})
	}
	service.chatSubs[rideID][sub] = struct{}{}
	service.subsMu.Unlock()

	sub.push(chatSnapshotOf(rideID, transcript, generateCorrelationID()))

	return sub, nil
}

// pushChatSnapshot fans the refreshed transcript out to a ride's subscribers.
func (service *coordinatorService) pushChatSnapshot(rideID string, transcript []*chat.Message, corrID string) {
	service.subsMu.Lock()
	targets := make([]*subscription[chatSnapshot], 0, len(service.chatSubs[rideID]))
	for sub := range service.chatSubs[rideID] {
		targets = append(targets, sub)
	}
	service.subsMu.Unlock()

	if len(targets) == 0 {
		return
	}

	snapshot := chatSnapshotOf(rideID, transcript, corrID)
	for _, sub := range targets {
		sub.push(snapshot)
	}
}

// chatSnapshotOf converts a transcript to its wire form.
func chatSnapshotOf(rideID string, transcript []*chat.Message, corrID string) chatSnapshot {
	out := chatSnapshot{
		Type:     "chat_snapshot",
		RideID:   rideID,
		Messages: make([]contracts.ChatMessagePayload, 0, len(transcript)),
		Envelope: newEnvelope(corrID),
	}
	for _, m := range transcript {
		out.Messages = append(out.Messages, contracts.ChatMessagePayload{
			MessageID: m.ID,
			RideID:    m.RideID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// cloneTranscript copies the message slice so callers never share registry state.
func cloneTranscript(msgs []*chat.Message) []*chat.Message {
	out := make([]*chat.Message, len(msgs))
	for i, m := range msgs {
		v := *m
		out[i] = &v
	}
	return out
}
