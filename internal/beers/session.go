package beers

import (
	"context"
	"errors"

	"github.com/aoideee/beer-rating/internal/conversation"
	"github.com/aoideee/beer-rating/internal/data"
)

// Session is the scratch state of one interaction sequence. It is not safe
// for concurrent use; hold Lock while calling its methods from handlers.
type Session struct {
	svc  *Service
	conv *conversation.Conversation[*Session]

	// Edit buffer.
	id   int64
	beer *data.Beer

	// Search state.
	example   data.Beer
	page      int
	count     int
	pageItems []*data.Beer

	// Staged one-to-many child.
	add *data.Beer

	notices []string
}

// ConversationID identifies the session to clients.
func (s *Session) ConversationID() string { return s.conv.ID() }

// Conversation exposes the underlying interaction sequence.
func (s *Session) Conversation() *conversation.Conversation[*Session] { return s.conv }

func (s *Session) Lock()   { s.conv.Lock() }
func (s *Session) Unlock() { s.conv.Unlock() }

// ID returns the id of the beer last retrieved or deleted.
func (s *Session) ID() int64 { return s.id }

// Beer returns the edit buffer. It is nil until Create or Retrieve.
func (s *Session) Beer() *data.Beer { return s.beer }

// Create begins the conversation with an empty edit buffer.
func (s *Session) Create() Outcome {
	s.conv.Begin()
	s.id = 0
	s.beer = &data.Beer{}
	return OutcomeCreate
}

// Retrieve loads the edit buffer for viewing. Without an id (id == 0) the
// buffer is a copy of the current search example, which backs the "new from
// template" flow. A postback leaves the buffer alone so in-progress edits
// survive a form round-trip.
func (s *Session) Retrieve(ctx context.Context, id int64, postback bool) error {
	if postback {
		return nil
	}
	if s.conv.IsTransient() {
		s.conv.Begin()
	}

	s.id = id
	if id == 0 {
		template := s.example
		template.ID = 0
		s.beer = &template
		return nil
	}

	beer, err := s.svc.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.beer = beer
	return nil
}

// Bind copies the provided input fields into the edit buffer.
func (s *Session) Bind(in data.BeerInput) {
	if s.beer == nil {
		s.beer = &data.Beer{}
	}
	in.Apply(s.beer)
}

// Update saves the edit buffer: a new beer is inserted and the caller is
// sent back to search, an existing one is merged and the caller is sent to
// its view. A persistence failure is recorded as a notice, the conversation
// stays open for a retry, and NoOutcome is returned.
func (s *Session) Update(ctx context.Context) Outcome {
	if s.beer == nil {
		s.notice("update", errors.New("no beer is being edited"))
		return NoOutcome
	}

	if s.beer.IsNew() {
		if err := s.svc.store.Insert(ctx, s.beer); err != nil {
			s.notice("insert", err)
			return NoOutcome
		}
		s.svc.logger.Info("beer created", "id", s.beer.ID, "conversation", s.ConversationID())
		s.conv.End()
		return OutcomeSearch
	}

	if err := s.svc.store.Update(ctx, s.beer); err != nil {
		s.notice("update", err)
		return NoOutcome
	}
	s.svc.logger.Info("beer updated", "id", s.beer.ID, "version", s.beer.Version, "conversation", s.ConversationID())
	s.conv.End()
	return ViewOutcome(s.beer.ID)
}

// Delete removes the beer with the given id and waits for the removal to be
// applied. Any failure, including a missing beer, is recorded as a notice
// and NoOutcome is returned.
func (s *Session) Delete(ctx context.Context, id int64) Outcome {
	s.id = id

	beer, err := s.svc.FindByID(ctx, id)
	if err == nil {
		err = s.svc.store.Remove(ctx, beer)
	}
	if err == nil {
		err = s.svc.store.Flush(ctx)
	}
	if err != nil {
		s.notice("delete", err)
		return NoOutcome
	}

	s.svc.logger.Info("beer deleted", "id", id, "conversation", s.ConversationID())
	s.conv.End()
	return OutcomeSearch
}

// Cancel ends the conversation and drops the edit buffer.
func (s *Session) Cancel() {
	s.conv.End()
	s.id = 0
	s.beer = nil
}

// Notices drains the messages recorded by failed operations.
func (s *Session) Notices() []string {
	notices := s.notices
	s.notices = nil
	return notices
}

func (s *Session) notice(op string, err error) {
	s.svc.logger.Error("persistence failure", "op", op, "conversation", s.ConversationID(), "error", err)
	s.notices = append(s.notices, err.Error())
}

// Search installs example as the filter template and rewinds to the first
// page. It does not query the store; call Paginate for that.
func (s *Session) Search(example data.Beer) {
	s.example = example
	s.page = 0
}

// Example returns the current filter template.
func (s *Session) Example() data.Beer { return s.example }

// SetPage moves the pagination cursor. Negative pages clamp to zero.
func (s *Session) SetPage(page int) { s.page = max(page, 0) }

func (s *Session) Page() int     { return s.page }
func (s *Session) PageSize() int { return PageSize }

// Count is the number of beers matching the filter at the last Paginate.
func (s *Session) Count() int { return s.count }

// PageItems holds the beers of the current page as of the last Paginate.
func (s *Session) PageItems() []*data.Beer { return s.pageItems }

// Paginate runs the count and the page query for the current filter template
// and page. Both queries use the same predicate slice.
func (s *Session) Paginate(ctx context.Context) error {
	preds := data.ExamplePredicates(&s.example)

	count, err := s.svc.store.Count(ctx, preds)
	if err != nil {
		return err
	}
	items, err := s.svc.store.List(ctx, preds, s.page*PageSize, PageSize)
	if err != nil {
		return err
	}

	s.count = count
	s.pageItems = items
	return nil
}

// StageChild returns the scratch child record being filled in.
func (s *Session) StageChild() *data.Beer { return s.add }

// TakeStagedChild hands over the staged child and stages a fresh one, so
// successive calls never return the same instance.
func (s *Session) TakeStagedChild() *data.Beer {
	added := s.add
	s.add = &data.Beer{}
	return added
}
