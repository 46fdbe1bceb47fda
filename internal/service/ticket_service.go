package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/models"
	"github.com/ruaancorrea/helpdesk-backend/internal/notify"
	"github.com/ruaancorrea/helpdesk-backend/internal/obs"
)

const (
	collTickets = "tickets"
	collUsers   = "users"
)

// ErrValidation marks bad caller input; the HTTP layer maps it to 400.
var ErrValidation = errors.New("invalid input")

// TicketService orchestrates the ticket lifecycle: creation, partial
// updates with status-change detection, and the append-only timeline and
// internal-comment streams. Notifications ride the queue and never touch
// the primary outcome.
type TicketService struct {
	store  docstore.Store
	sender notify.Sender
	queue  notify.Queue
	log    zerolog.Logger
}

func NewTicketService(store docstore.Store, sender notify.Sender, queue notify.Queue, log zerolog.Logger) *TicketService {
	return &TicketService{
		store:  store,
		sender: sender,
		queue:  queue,
		log:    log.With().Str("component", "tickets").Logger(),
	}
}

type TicketInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	UserID      string `json:"userId"`
}

func (in *TicketInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Priority) == "" {
		return fmt.Errorf("%w: priority is required", ErrValidation)
	}
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return nil
}

type EntryInput struct {
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

func (in *EntryInput) validate() error {
	if strings.TrimSpace(in.UserName) == "" {
		return fmt.Errorf("%w: userName is required", ErrValidation)
	}
	if strings.TrimSpace(in.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	return nil
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }

// Create stores the ticket and responds before any notification work.
// Timeline and internal comments always start empty, whatever the caller
// sent for those fields.
func (s *TicketService) Create(ctx context.Context, in TicketInput) (docstore.Document, error) {
	if err := in.validate(); err != nil {
		return docstore.Document{}, err
	}
	now := nowStamp()
	t := models.Ticket{
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Category:         strings.TrimSpace(in.Category),
		Priority:         strings.TrimSpace(in.Priority),
		Status:           strings.TrimSpace(in.Status),
		UserID:           strings.TrimSpace(in.UserID),
		CreatedAt:        now,
		UpdatedAt:        now,
		Timeline:         []models.TimelineEntry{},
		InternalComments: []models.TimelineEntry{},
	}
	created, err := s.store.Add(ctx, collTickets, t)
	if err != nil {
		return docstore.Document{}, err
	}
	s.queue.Enqueue("ticket-created", s.notifyTechnicians(t.Title, t.Priority))
	return created, nil
}

func (s *TicketService) List(ctx context.Context) ([]docstore.Document, error) {
	return s.store.Query(ctx, collTickets, nil)
}

func (s *TicketService) Get(ctx context.Context, id string) (docstore.Document, error) {
	return s.store.Get(ctx, collTickets, id)
}

// Delete is idempotent: removing a missing ticket succeeds.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, collTickets, id)
}

// Update merges the patch into the stored ticket. The pre-update document
// is read first: a partial merge makes the prior status unrecoverable, and
// the status comparison drives the owner notification. The read and the
// write are not transactional; a racing writer can at worst skew one
// best-effort notification.
func (s *TicketService) Update(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	beforeDoc, err := s.store.Get(ctx, collTickets, id)
	if err != nil {
		return nil, err
	}
	var before models.Ticket
	if err := beforeDoc.Decode(&before); err != nil {
		return nil, err
	}

	if patch == nil {
		patch = map[string]any{}
	}
	// Reserved fields never come from the patch.
	delete(patch, "id")
	delete(patch, "createdAt")
	delete(patch, "timeline")
	delete(patch, "internalComments")
	patch["updatedAt"] = nowStamp()

	if err := s.store.Update(ctx, collTickets, id, patch); err != nil {
		return nil, err
	}

	if newStatus, ok := patch["status"].(string); ok && newStatus != before.Status {
		s.queue.Enqueue("ticket-status-changed", s.notifyStatusChange(before.Title, before.UserID, newStatus))
	}
	return patch, nil
}

// AppendTimeline adds a public reply to the ticket's timeline.
func (s *TicketService) AppendTimeline(ctx context.Context, ticketID string, in EntryInput) (models.TimelineEntry, error) {
	if err := in.validate(); err != nil {
		return models.TimelineEntry{}, err
	}
	beforeDoc, err := s.store.Get(ctx, collTickets, ticketID)
	if err != nil {
		return models.TimelineEntry{}, err
	}
	var before models.Ticket
	if err := beforeDoc.Decode(&before); err != nil {
		return models.TimelineEntry{}, err
	}

	entry := models.TimelineEntry{
		ID:        uuid.NewString(),
		UserName:  strings.TrimSpace(in.UserName),
		Message:   in.Message,
		CreatedAt: nowStamp(),
	}
	if err := s.store.ArrayAppend(ctx, collTickets, ticketID, "timeline", entry); err != nil {
		return models.TimelineEntry{}, err
	}
	s.queue.Enqueue("timeline-reply", s.notifyOwnerReply(ticketID, before, entry))
	return entry, nil
}

// AppendInternalComment mirrors the timeline discipline on the staff-only
// stream. Internal comments never notify the ticket owner.
func (s *TicketService) AppendInternalComment(ctx context.Context, ticketID string, in EntryInput) (models.TimelineEntry, error) {
	if err := in.validate(); err != nil {
		return models.TimelineEntry{}, err
	}
	entry := models.TimelineEntry{
		ID:        uuid.NewString(),
		UserName:  strings.TrimSpace(in.UserName),
		Message:   in.Message,
		CreatedAt: nowStamp(),
	}
	if err := s.store.ArrayAppend(ctx, collTickets, ticketID, "internalComments", entry); err != nil {
		return models.TimelineEntry{}, err
	}
	return entry, nil
}

// -----------------------------------------------------------------------------
// Notification jobs. Each runs detached on the dispatcher; failures are
// logged and counted only. Fan-out sends are attempted per recipient.
// -----------------------------------------------------------------------------

func (s *TicketService) notifyTechnicians(title, priority string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		techs, err := s.store.Query(ctx, collUsers, map[string]any{"role": "technician"})
		if err != nil {
			return fmt.Errorf("query technicians: %w", err)
		}
		subject := "Novo Chamado Aberto: " + title
		html := fmt.Sprintf(`<p>Um novo chamado foi aberto no sistema de Helpdesk.</p>
<p><b>Título:</b> %s</p>
<p><b>Prioridade:</b> %s</p>
<p>Por favor, verifique o painel para mais detalhes.</p>`, title, priority)

		failed := 0
		for _, doc := range techs {
			var u models.User
			if err := doc.Decode(&u); err != nil || u.Email == "" {
				continue
			}
			err := s.sender.Send(ctx, u.Email, subject, html)
			obs.ObserveEmail(err)
			if err != nil {
				failed++
				s.log.Error().Err(err).Str("to", u.Email).Msg("technician notification failed")
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d technician notification(s) failed", failed)
		}
		return nil
	}
}

func (s *TicketService) notifyStatusChange(title, userID, newStatus string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		email, name, err := s.ownerEmail(ctx, userID)
		if err != nil || email == "" {
			return err
		}
		subject := "Status do seu Chamado Atualizado: " + title
		html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>O status do seu chamado "%s" foi alterado para: <b>%s</b>.</p>
<p>Acesse o portal para mais detalhes.</p>`, name, title, newStatus)
		err = s.sender.Send(ctx, email, subject, html)
		obs.ObserveEmail(err)
		return err
	}
}

func (s *TicketService) notifyOwnerReply(ticketID string, before models.Ticket, entry models.TimelineEntry) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		email, name, err := s.ownerEmail(ctx, before.UserID)
		if err != nil || email == "" {
			return err
		}

		// The status may have been updated alongside the reply; re-read to
		// include the change in the same email.
		statusNote := ""
		if afterDoc, err := s.store.Get(ctx, collTickets, ticketID); err == nil {
			var after models.Ticket
			if err := afterDoc.Decode(&after); err == nil && after.Status != before.Status {
				statusNote = fmt.Sprintf(`<p>Além disso, o status do seu chamado foi alterado para: <b>%s</b>.</p>`, after.Status)
			}
		}

		subject := "Nova Resposta no seu Chamado: " + before.Title
		html := fmt.Sprintf(`<p>Olá, %s!</p>
<p>Houve uma nova resposta no seu chamado "%s".</p>
<p><b>Comentário de %s:</b></p>
<blockquote style="border-left: 2px solid #ccc; padding-left: 1em; margin-left: 1em; font-style: italic;">%s</blockquote>
%s
<p>Acesse o portal para mais detalhes.</p>`, name, before.Title, entry.UserName, entry.Message, statusNote)
		err = s.sender.Send(ctx, email, subject, html)
		obs.ObserveEmail(err)
		return err
	}
}

// ownerEmail resolves the ticket owner. A missing or email-less owner is
// not an error, just nothing to send.
func (s *TicketService) ownerEmail(ctx context.Context, userID string) (email, name string, err error) {
	if userID == "" {
		return "", "", nil
	}
	doc, err := s.store.Get(ctx, collUsers, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			s.log.Debug().Str("userId", userID).Msg("ticket owner not found")
			return "", "", nil
		}
		return "", "", fmt.Errorf("resolve owner: %w", err)
	}
	var u models.User
	if err := doc.Decode(&u); err != nil {
		return "", "", err
	}
	return u.Email, u.Name, nil
}
