// Package beers implements the beer editing and search workflow on top of a
// data.Store.
//
// Service holds the stateless operations. Each interaction sequence gets a
// Session carrying the edit buffer, the search example and the pagination
// cursor; the Session lives exactly as long as its conversation.
package beers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aoideee/beer-rating/internal/conversation"
	"github.com/aoideee/beer-rating/internal/data"
)

// PageSize is the number of beers on one search page.
const PageSize = 10

var (
	// ErrConversationNotFound is returned for unknown, ended or expired
	// conversation ids.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidID is returned when a textual beer id cannot be parsed.
	ErrInvalidID = errors.New("invalid beer id")
)

// Outcome is a navigation signal for the presentation layer. NoOutcome means
// "stay on the current view", usually after a notice has been recorded.
type Outcome string

const (
	NoOutcome     Outcome = ""
	OutcomeCreate Outcome = "create"
	OutcomeSearch Outcome = "search"
)

// ViewOutcome navigates to the detail view of the beer with the given id.
func ViewOutcome(id int64) Outcome {
	return Outcome("view:" + strconv.FormatInt(id, 10))
}

// Conversations is the registry type sessions are kept in.
type Conversations = conversation.Manager[*Session]

// Service exposes beer CRUD and search over a data.Store.
type Service struct {
	store         data.Store
	conversations *Conversations
	logger        *slog.Logger
}

// NewService returns a Service backed by store. Sessions that begin a
// conversation are registered in conversations.
func NewService(store data.Store, conversations *Conversations, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, conversations: conversations, logger: logger}
}

// NewSession starts a session on a fresh transient conversation.
func (s *Service) NewSession() *Session {
	sess := &Session{svc: s, add: &data.Beer{}}
	sess.conv = s.conversations.New(sess)
	return sess
}

// Session returns the session of the long-running conversation cid.
func (s *Service) Session(cid string) (*Session, error) {
	c, ok := s.conversations.Get(cid)
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c.State, nil
}

// FindByID loads a beer. A missing beer is reported as data.ErrRecordNotFound,
// never as a nil record.
func (s *Service) FindByID(ctx context.Context, id int64) (*data.Beer, error) {
	beer, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find beer %d: %w", id, err)
	}
	return beer, nil
}

// All returns every beer, for populating selection lists.
func (s *Service) All(ctx context.Context) ([]*data.Beer, error) {
	return s.store.ListAll(ctx)
}

// ResolveFromID turns an id produced by FormatAsID back into its beer.
func (s *Service) ResolveFromID(ctx context.Context, value string) (*data.Beer, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	return s.FindByID(ctx, id)
}

// FormatAsID renders a beer reference as its id. A nil beer renders as "".
func (s *Service) FormatAsID(beer *data.Beer) string {
	if beer == nil {
		return ""
	}
	return strconv.FormatInt(beer.ID, 10)
}
