package beers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/beer-rating/internal/conversation"
	"github.com/aoideee/beer-rating/internal/data"
)

func newTestService(t *testing.T, store data.Store) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, conversation.NewManager[*Session](time.Minute, logger), logger)
}

func seed(t *testing.T, store data.Store, beers ...data.Beer) []*data.Beer {
	t.Helper()
	out := make([]*data.Beer, 0, len(beers))
	for i := range beers {
		b := beers[i]
		require.NoError(t, store.Insert(context.Background(), &b))
		out = append(out, &b)
	}
	return out
}

// failingStore fails every write with err.
type failingStore struct {
	*data.MemoryStore
	err error
}

func (s failingStore) Insert(context.Context, *data.Beer) error { return s.err }
func (s failingStore) Update(context.Context, *data.Beer) error { return s.err }
func (s failingStore) Flush(context.Context) error              { return s.err }

func TestCreateBeginsConversationWithEmptyBuffer(t *testing.T) {
	svc := newTestService(t, data.NewMemoryStore())
	sess := svc.NewSession()
	require.True(t, sess.Conversation().IsTransient())

	outcome := sess.Create()

	assert.Equal(t, OutcomeCreate, outcome)
	assert.False(t, sess.Conversation().IsTransient())
	require.NotNil(t, sess.Beer())
	assert.True(t, sess.Beer().IsNew())

	got, err := svc.Session(sess.ConversationID())
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestSessionLookupUnknown(t *testing.T) {
	svc := newTestService(t, data.NewMemoryStore())
	_, err := svc.Session("nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestUpdateNewBeerInsertsAndNavigatesToSearch(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seed(t, store, data.Beer{Name: "Existing"})
	svc := newTestService(t, store)

	sess := svc.NewSession()
	sess.Create()
	name, score := "Tripel", 9
	sess.Bind(data.BeerInput{Name: &name, Score: &score})

	outcome := sess.Update(ctx)

	assert.Equal(t, OutcomeSearch, outcome)
	assert.Equal(t, int64(2), sess.Beer().ID)
	assert.True(t, sess.Conversation().IsTransient(), "a successful update ends the conversation")
	_, err := svc.Session(sess.ConversationID())
	assert.ErrorIs(t, err, ErrConversationNotFound)

	stored, err := store.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Tripel", stored.Name)
}

func TestUpdateExistingBeerNavigatesToView(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seeded := seed(t, store, data.Beer{Name: "Pils", Score: 5}, data.Beer{Name: "Bock", Score: 6})
	svc := newTestService(t, store)

	sess := svc.NewSession()
	require.NoError(t, sess.Retrieve(ctx, seeded[0].ID, false))
	score := 7
	sess.Bind(data.BeerInput{Score: &score})

	outcome := sess.Update(ctx)

	assert.Equal(t, ViewOutcome(seeded[0].ID), outcome)
	assert.Equal(t, Outcome("view:1"), outcome)

	updated, _ := store.FindByID(ctx, seeded[0].ID)
	assert.Equal(t, 7, updated.Score)
	assert.Equal(t, "Pils", updated.Name)
	untouched, _ := store.FindByID(ctx, seeded[1].ID)
	assert.Equal(t, *seeded[1], *untouched)
}

func TestUpdateFailureRecordsNoticeAndKeepsConversation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, failingStore{MemoryStore: data.NewMemoryStore(), err: errors.New("unique violation")})

	sess := svc.NewSession()
	sess.Create()
	name := "Dup"
	sess.Bind(data.BeerInput{Name: &name})

	outcome := sess.Update(ctx)

	assert.Equal(t, NoOutcome, outcome)
	assert.Equal(t, []string{"unique violation"}, sess.Notices())
	assert.Empty(t, sess.Notices(), "notices are drained")
	assert.False(t, sess.Conversation().IsTransient())
	assert.Equal(t, "Dup", sess.Beer().Name, "the edit buffer survives for a retry")
}

func TestUpdateEditConflict(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seeded := seed(t, store, data.Beer{Name: "Pils"})
	svc := newTestService(t, store)

	first, second := svc.NewSession(), svc.NewSession()
	require.NoError(t, first.Retrieve(ctx, seeded[0].ID, false))
	require.NoError(t, second.Retrieve(ctx, seeded[0].ID, false))

	assert.Equal(t, ViewOutcome(seeded[0].ID), first.Update(ctx))
	assert.Equal(t, NoOutcome, second.Update(ctx))
	assert.Equal(t, []string{data.ErrEditConflict.Error()}, second.Notices())
}

func TestUpdateWithoutBuffer(t *testing.T) {
	sess := newTestService(t, data.NewMemoryStore()).NewSession()
	assert.Equal(t, NoOutcome, sess.Update(context.Background()))
	assert.Len(t, sess.Notices(), 1)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seeded := seed(t, store, data.Beer{Name: "Pils"})
	svc := newTestService(t, store)

	sess := svc.NewSession()
	sess.Create()
	outcome := sess.Delete(ctx, seeded[0].ID)

	assert.Equal(t, OutcomeSearch, outcome)
	assert.True(t, sess.Conversation().IsTransient())
	_, err := store.FindByID(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound, "delete must flush before returning")
}

func TestDeleteNonexistentRecordsNotice(t *testing.T) {
	svc := newTestService(t, data.NewMemoryStore())
	sess := svc.NewSession()
	sess.Create()

	outcome := sess.Delete(context.Background(), 404)

	assert.Equal(t, NoOutcome, outcome)
	notices := sess.Notices()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "record not found")
	assert.False(t, sess.Conversation().IsTransient())
}

func TestDeleteFlushFailure(t *testing.T) {
	store := failingStore{MemoryStore: data.NewMemoryStore(), err: errors.New("disk full")}
	seeded := seed(t, store.MemoryStore, data.Beer{Name: "Pils"})
	sess := newTestService(t, store).NewSession()

	assert.Equal(t, NoOutcome, sess.Delete(context.Background(), seeded[0].ID))
	assert.Equal(t, []string{"disk full"}, sess.Notices())
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seeded := seed(t, store, data.Beer{Name: "Pils", Taste: "crisp"})
	svc := newTestService(t, store)

	t.Run("by id begins the conversation", func(t *testing.T) {
		sess := svc.NewSession()
		require.NoError(t, sess.Retrieve(ctx, seeded[0].ID, false))
		assert.False(t, sess.Conversation().IsTransient())
		assert.Equal(t, "Pils", sess.Beer().Name)
		assert.Equal(t, seeded[0].ID, sess.ID())
	})

	t.Run("without id copies the search example", func(t *testing.T) {
		sess := svc.NewSession()
		sess.Search(data.Beer{Name: "Weizen", Score: 4})
		require.NoError(t, sess.Retrieve(ctx, 0, false))

		assert.Equal(t, "Weizen", sess.Beer().Name)
		assert.Equal(t, 4, sess.Beer().Score)
		assert.True(t, sess.Beer().IsNew())

		sess.Beer().Name = "edited"
		assert.Equal(t, "Weizen", sess.Example().Name, "the buffer must not alias the example")
	})

	t.Run("postback keeps the buffer", func(t *testing.T) {
		sess := svc.NewSession()
		require.NoError(t, sess.Retrieve(ctx, seeded[0].ID, false))
		sess.Beer().Name = "in progress"

		require.NoError(t, sess.Retrieve(ctx, seeded[0].ID, true))
		assert.Equal(t, "in progress", sess.Beer().Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		sess := svc.NewSession()
		err := sess.Retrieve(ctx, 999, false)
		assert.ErrorIs(t, err, data.ErrRecordNotFound)
	})
}

func TestCancelEndsConversation(t *testing.T) {
	svc := newTestService(t, data.NewMemoryStore())
	sess := svc.NewSession()
	sess.Create()
	cid := sess.ConversationID()

	sess.Cancel()

	assert.Nil(t, sess.Beer())
	_, err := svc.Session(cid)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSearchResetsPage(t *testing.T) {
	sess := newTestService(t, data.NewMemoryStore()).NewSession()
	sess.SetPage(3)
	assert.Equal(t, 3, sess.Page())

	sess.Search(data.Beer{Name: "x"})
	assert.Equal(t, 0, sess.Page())
	assert.Equal(t, "x", sess.Example().Name)

	sess.SetPage(-2)
	assert.Equal(t, 0, sess.Page())
	assert.Equal(t, 10, sess.PageSize())
}

func TestPaginateIPAExample(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	for i := range 15 {
		seed(t, store, data.Beer{Name: fmt.Sprintf("Brewery %d IPA", i)})
	}
	for i := range 7 {
		seed(t, store, data.Beer{Name: fmt.Sprintf("Porter %d", i)})
	}
	sess := newTestService(t, store).NewSession()

	sess.Search(data.Beer{Name: "ipa", Taste: "", Score: 0})
	require.NoError(t, sess.Paginate(ctx))

	assert.Equal(t, 15, sess.Count())
	require.Len(t, sess.PageItems(), 10)
	for _, b := range sess.PageItems() {
		assert.Contains(t, b.Name, "IPA")
	}

	sess.SetPage(1)
	require.NoError(t, sess.Paginate(ctx))
	assert.Equal(t, 15, sess.Count())
	assert.Len(t, sess.PageItems(), 5)
}

func TestPaginateEmptyExampleMatchesAll(t *testing.T) {
	store := data.NewMemoryStore()
	seed(t, store, data.Beer{Name: "a"}, data.Beer{Name: "b", Score: 3})
	sess := newTestService(t, store).NewSession()

	require.NoError(t, sess.Paginate(context.Background()))
	assert.Equal(t, 2, sess.Count())
	assert.Len(t, sess.PageItems(), 2)
}

func TestTakeStagedChildYieldsDistinctInstances(t *testing.T) {
	sess := newTestService(t, data.NewMemoryStore()).NewSession()

	staged := sess.StageChild()
	staged.Name = "Radler"

	first := sess.TakeStagedChild()
	second := sess.TakeStagedChild()

	assert.Same(t, staged, first)
	assert.NotSame(t, first, second)
	assert.Equal(t, "", second.Name)

	first.Name = "changed"
	assert.Equal(t, "", second.Name)
	assert.NotSame(t, second, sess.StageChild())
}

func TestConverter(t *testing.T) {
	ctx := context.Background()
	store := data.NewMemoryStore()
	seeded := seed(t, store, data.Beer{Name: "Pils"})
	svc := newTestService(t, store)

	assert.Equal(t, "", svc.FormatAsID(nil))
	id := svc.FormatAsID(seeded[0])
	assert.Equal(t, "1", id)

	beer, err := svc.ResolveFromID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pils", beer.Name)

	_, err = svc.ResolveFromID(ctx, "abc")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = svc.ResolveFromID(ctx, "0")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = svc.ResolveFromID(ctx, "77")
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func TestAll(t *testing.T) {
	store := data.NewMemoryStore()
	seed(t, store, data.Beer{Name: "a"}, data.Beer{Name: "b"}, data.Beer{Name: "c"})

	all, err := newTestService(t, store).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
