package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/models"
)

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

// fakeSender records sends and can fail selectively by recipient.
type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[to]; ok {
		return err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (f *fakeSender) messages() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

// syncQueue runs jobs inline so tests can assert on notification effects
// deterministically.
type syncQueue struct{ errs []error }

func (q *syncQueue) Enqueue(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		q.errs = append(q.errs, err)
	}
}

func newTestTicketService() (*TicketService, *docstore.Memory, *fakeSender, *syncQueue) {
	store := docstore.NewMemory()
	sender := &fakeSender{failTo: map[string]error{}}
	queue := &syncQueue{}
	svc := NewTicketService(store, sender, queue, zerolog.Nop())
	return svc, store, sender, queue
}

func addUser(t *testing.T, store *docstore.Memory, email, name, role string) string {
	t.Helper()
	doc, err := store.Add(context.Background(), collUsers, map[string]any{
		"email": email, "name": name, "role": role,
	})
	require.NoError(t, err)
	return doc.ID
}

func TestCreateTicketInitializesEmptyStreams(t *testing.T) {
	svc, store, _, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")

	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "Impressora parada", Priority: "high", UserID: owner, Status: "open",
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	var tk models.Ticket
	require.NoError(t, doc.Decode(&tk))
	require.NotNil(t, tk.Timeline)
	require.Empty(t, tk.Timeline)
	require.NotNil(t, tk.InternalComments)
	require.Empty(t, tk.InternalComments)
	require.Equal(t, tk.CreatedAt, tk.UpdatedAt)
	require.NotEmpty(t, tk.CreatedAt)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _, _ := newTestTicketService()

	_, err := svc.Create(context.Background(), TicketInput{Priority: "low", UserID: "u1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), TicketInput{Title: "x", UserID: "u1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), TicketInput{Title: "x", Priority: "low"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateTicketNotifiesEachTechnician(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	addUser(t, store, "tec1@example.com", "Tec 1", "technician")
	addUser(t, store, "tec2@example.com", "Tec 2", "technician")
	addUser(t, store, "", "Tec sem email", "technician")
	addUser(t, store, "admin@example.com", "Admin", "admin")

	_, err := svc.Create(context.Background(), TicketInput{
		Title: "VPN fora do ar", Priority: "critical", UserID: owner,
	})
	require.NoError(t, err)

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	tos := []string{msgs[0].To, msgs[1].To}
	require.ElementsMatch(t, []string{"tec1@example.com", "tec2@example.com"}, tos)
	require.Contains(t, msgs[0].Subject, "VPN fora do ar")
	require.Contains(t, msgs[0].HTML, "critical")
}

func TestCreateTicketFanOutToleratesPartialFailure(t *testing.T) {
	svc, store, sender, queue := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	addUser(t, store, "tec1@example.com", "Tec 1", "technician")
	addUser(t, store, "tec2@example.com", "Tec 2", "technician")
	sender.failTo["tec1@example.com"] = errors.New("smtp down")

	_, err := svc.Create(context.Background(), TicketInput{
		Title: "Sem rede", Priority: "high", UserID: owner,
	})
	require.NoError(t, err, "primary operation must not fail on notification errors")

	// The other recipient still got its send.
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "tec2@example.com", msgs[0].To)
	// The job reported the partial failure to the dispatcher log path.
	require.Len(t, queue.errs, 1)
}

func TestUpdateTicketNotFound(t *testing.T) {
	svc, _, _, _ := newTestTicketService()
	_, err := svc.Update(context.Background(), "missing", map[string]any{"status": "closed"})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdateTicketStatusChangeNotifiesOwnerOnce(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "Monitor piscando", Priority: "low", UserID: owner, Status: "open",
	})
	require.NoError(t, err)

	applied, err := svc.Update(context.Background(), doc.ID, map[string]any{"status": "closed"})
	require.NoError(t, err)
	require.Equal(t, "closed", applied["status"])
	require.NotEmpty(t, applied["updatedAt"])

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "ana@example.com", msgs[0].To)
	require.Contains(t, msgs[0].Subject, "Monitor piscando")
	require.Contains(t, msgs[0].HTML, "closed")
}

func TestUpdateTicketSameStatusDoesNotNotify(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner, Status: "open",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), doc.ID, map[string]any{"status": "open"})
	require.NoError(t, err)
	require.Empty(t, sender.messages())
}

func TestUpdateTicketPriorityOnlyDoesNotNotify(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner, Status: "open",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), doc.ID, map[string]any{"priority": "critical"})
	require.NoError(t, err)
	require.Empty(t, sender.messages())

	// the merge still applied
	after, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	var tk models.Ticket
	require.NoError(t, after.Decode(&tk))
	require.Equal(t, "critical", tk.Priority)
	require.Equal(t, "open", tk.Status)
}

func TestUpdateTicketOwnerWithoutEmail(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "", "Sem Email", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner, Status: "open",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), doc.ID, map[string]any{"status": "closed"})
	require.NoError(t, err)
	require.Empty(t, sender.messages())
}

func TestUpdateTicketMonotonicUpdatedAt(t *testing.T) {
	svc, store, _, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner,
	})
	require.NoError(t, err)

	var before models.Ticket
	require.NoError(t, doc.Decode(&before))

	_, err = svc.Update(context.Background(), doc.ID, map[string]any{"priority": "high"})
	require.NoError(t, err)

	after, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	var tk models.Ticket
	require.NoError(t, after.Decode(&tk))
	require.GreaterOrEqual(t, tk.UpdatedAt, before.UpdatedAt)
	require.GreaterOrEqual(t, tk.UpdatedAt, tk.CreatedAt)
}

func TestUpdateTicketStripsReservedFields(t *testing.T) {
	svc, store, _, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner,
	})
	require.NoError(t, err)
	var created models.Ticket
	require.NoError(t, doc.Decode(&created))

	_, err = svc.Update(context.Background(), doc.ID, map[string]any{
		"createdAt": "1999-01-01T00:00:00Z",
		"timeline":  []any{map[string]any{"message": "forged"}},
		"title":     "novo título",
	})
	require.NoError(t, err)

	after, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	var tk models.Ticket
	require.NoError(t, after.Decode(&tk))
	require.Equal(t, created.CreatedAt, tk.CreatedAt)
	require.Empty(t, tk.Timeline)
	require.Equal(t, "novo título", tk.Title)
}

func TestAppendTimelineEntry(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "Teclado quebrado", Priority: "low", UserID: owner,
	})
	require.NoError(t, err)

	entry, err := svc.AppendTimeline(context.Background(), doc.ID, EntryInput{
		UserName: "Tec 1", Message: "Peça encomendada.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	require.NotEmpty(t, entry.CreatedAt)

	after, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	var tk models.Ticket
	require.NoError(t, after.Decode(&tk))
	require.Len(t, tk.Timeline, 1)
	require.Equal(t, "Peça encomendada.", tk.Timeline[0].Message)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "ana@example.com", msgs[0].To)
	require.Contains(t, msgs[0].Subject, "Teclado quebrado")
	require.Contains(t, msgs[0].HTML, "Peça encomendada.")
	require.Contains(t, msgs[0].HTML, "Tec 1")
}

func TestAppendTimelineMissingTicket(t *testing.T) {
	svc, _, sender, _ := newTestTicketService()
	_, err := svc.AppendTimeline(context.Background(), "missing", EntryInput{
		UserName: "x", Message: "y",
	})
	require.ErrorIs(t, err, docstore.ErrNotFound)
	require.Empty(t, sender.messages())
}

func TestAppendTimelineValidation(t *testing.T) {
	svc, _, _, _ := newTestTicketService()
	_, err := svc.AppendTimeline(context.Background(), "any", EntryInput{Message: "y"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.AppendTimeline(context.Background(), "any", EntryInput{UserName: "x"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAppendInternalCommentDoesNotNotify(t *testing.T) {
	svc, store, sender, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner,
	})
	require.NoError(t, err)

	entry, err := svc.AppendInternalComment(context.Background(), doc.ID, EntryInput{
		UserName: "Tec 1", Message: "usuário difícil",
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	require.Empty(t, sender.messages())

	after, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	var tk models.Ticket
	require.NoError(t, after.Decode(&tk))
	require.Len(t, tk.InternalComments, 1)
	require.Empty(t, tk.Timeline)
}

func TestAppendInternalCommentMissingTicket(t *testing.T) {
	svc, _, _, _ := newTestTicketService()
	_, err := svc.AppendInternalComment(context.Background(), "missing", EntryInput{
		UserName: "x", Message: "y",
	})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDeleteTicketIdempotent(t *testing.T) {
	svc, store, _, _ := newTestTicketService()
	owner := addUser(t, store, "ana@example.com", "Ana", "user")
	doc, err := svc.Create(context.Background(), TicketInput{
		Title: "t", Priority: "low", UserID: owner,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	_, err = svc.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}
