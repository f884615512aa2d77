package prospect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Action names a prospect command.
type Action string

const (
	ActionSetStatus     Action = "set_status"
	ActionUpdateChannel Action = "update_channel"
	ActionUpdateNotes   Action = "update_notes"
	ActionAssign        Action = "assign"
	ActionDelete        Action = "delete"
)

// Command is the wire envelope for a prospect mutation.
type Command struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is what a command produced. Prospect is nil after a delete.
type Result struct {
	Prospect *Prospect `json:"prospect,omitempty"`
	Deleted  bool      `json:"deleted,omitempty"`
}

// Handler executes one action against a prospect.
type Handler func(ctx context.Context, sess Session, id uuid.UUID, payload json.RawMessage) (Result, error)

// Dispatcher routes commands to typed handlers.
type Dispatcher struct {
	handlers map[Action]Handler
}

// NewDispatcher wires every Action to the matching Service operation.
func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{handlers: map[Action]Handler{
		ActionSetStatus:     svc.handleSetStatus,
		ActionUpdateChannel: svc.handleUpdateChannel,
		ActionUpdateNotes:   svc.handleUpdateNotes,
		ActionAssign:        svc.handleAssign,
		ActionDelete:        svc.handleDelete,
	}}
}

// Dispatch runs cmd. Unknown actions return ErrUnknownAction.
func (d *Dispatcher) Dispatch(ctx context.Context, sess Session, id uuid.UUID, cmd Command) (Result, error) {
	h, ok := d.handlers[cmd.Action]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return h(ctx, sess, id, cmd.Payload)
}

// Actions lists the registered actions, sorted.
func (d *Dispatcher) Actions() []Action {
	out := make([]Action, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type setStatusPayload struct {
	Status string `json:"status"`
}

type updateChannelPayload struct {
	Channel string `json:"channel"`
	ChannelUpdate
}

type updateNotesPayload struct {
	Notes string `json:"notes"`
}

type assignPayload struct {
	UserID *uuid.UUID `json:"userId"`
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func (s *Service) handleSetStatus(ctx context.Context, sess Session, id uuid.UUID, raw json.RawMessage) (Result, error) {
	var body setStatusPayload
	if err := decodePayload(raw, &body); err != nil {
		return Result{}, err
	}
	status, err := ParseStatus(body.Status)
	if err != nil {
		return Result{}, err
	}
	p, err := s.SetStatus(ctx, sess, id, status)
	return Result{Prospect: &p}, err
}

func (s *Service) handleUpdateChannel(ctx context.Context, sess Session, id uuid.UUID, raw json.RawMessage) (Result, error) {
	var body updateChannelPayload
	if err := decodePayload(raw, &body); err != nil {
		return Result{}, err
	}
	ch, err := ParseChannel(body.Channel)
	if err != nil {
		return Result{}, err
	}
	p, err := s.UpdateChannel(ctx, sess, id, ch, body.ChannelUpdate)
	return Result{Prospect: &p}, err
}

func (s *Service) handleUpdateNotes(ctx context.Context, sess Session, id uuid.UUID, raw json.RawMessage) (Result, error) {
	var body updateNotesPayload
	if err := decodePayload(raw, &body); err != nil {
		return Result{}, err
	}
	p, err := s.UpdateNotes(ctx, sess, id, body.Notes)
	return Result{Prospect: &p}, err
}

func (s *Service) handleAssign(ctx context.Context, sess Session, id uuid.UUID, raw json.RawMessage) (Result, error) {
	var body assignPayload
	if err := decodePayload(raw, &body); err != nil {
		return Result{}, err
	}
	p, err := s.Assign(ctx, sess, id, body.UserID)
	return Result{Prospect: &p}, err
}

func (s *Service) handleDelete(ctx context.Context, sess Session, id uuid.UUID, _ json.RawMessage) (Result, error) {
	if err := s.Delete(ctx, sess, id); err != nil {
		return Result{}, err
	}
	return Result{Deleted: true}, nil
}
