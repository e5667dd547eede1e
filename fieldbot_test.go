package fieldbot_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/testutils"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBot(t *testing.T, prov *testutils.StubProvisioner, opts ...fieldbot.Option) (*fieldbot.Bot, *memory.Source) {
	t.Helper()
	rows := append(testutils.SiteRows("HAN", 7), []string{"99", "DNG01", "10.9.9.9", "BTS-99"})
	src := memory.NewSource(testutils.Workbook(t, testutils.SiteHeader, rows...))
	if prov == nil {
		prov = &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess}
	}
	all := append([]fieldbot.Option{
		fieldbot.WithDatasetSource(src),
		fieldbot.WithProvisioner(prov),
	}, opts...)
	bot, err := fieldbot.New(all...)
	require.NoError(t, err)
	return bot, src
}

func send(t *testing.T, bot *fieldbot.Bot, userID string, msgs ...string) (domain.Reply, *domain.Session) {
	t.Helper()
	var (
		reply domain.Reply
		sess  *domain.Session
		err   error
	)
	for _, m := range msgs {
		reply, sess, err = bot.HandleText(context.Background(), userID, m)
		require.NoError(t, err, "message %q", m)
	}
	return reply, sess
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := fieldbot.New()
	assert.ErrorIs(t, err, fieldbot.ErrNotConfigured)

	_, err = fieldbot.New(fieldbot.WithDatasetSource(memory.NewSource(nil)))
	assert.ErrorIs(t, err, fieldbot.ErrNotConfigured)
}

func TestBot_SearchSingleMatch(t *testing.T) {
	bot, _ := newBot(t, nil)

	reply, sess := send(t, bot, "u1", "/start", "Search Site", "DNG01")
	assert.Equal(t, domain.StateSearching, sess.State)

	out := reply.String()
	assert.Contains(t, out, "Found 1 matches for 'DNG01'")
	assert.Contains(t, out, "Site: DNG01")
	assert.Contains(t, out, "IP: 10.9.9.9")
	assert.NotContains(t, out, "BTS Name")
	assert.NotContains(t, out, "more results not shown")
}

func TestBot_SearchTruncates(t *testing.T) {
	bot, _ := newBot(t, nil)

	reply, _ := send(t, bot, "u1", "Search Site", "han")
	assert.Contains(t, reply.String(), "...and 2 more results not shown")
}

func TestBot_ChangeDevice(t *testing.T) {
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess}
	bot, _ := newBot(t, prov)

	reply, sess := send(t, bot, "u1", "Change Device", "account:12345\ndevice:ABC")
	assert.Equal(t, domain.StateChangingDevice, sess.State)
	assert.Contains(t, reply.String(), "✅ Success")
	assert.Equal(t, []domain.ChangeRequest{{Account: "12345", DeviceCode: "ABC"}}, prov.Requests())
}

func TestBot_ChangeDeviceFormatError(t *testing.T) {
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess}
	bot, _ := newBot(t, prov)

	reply, sess := send(t, bot, "u1", "Change Device", "account:12345")
	assert.Equal(t, domain.StateChangingDevice, sess.State)
	assert.Contains(t, reply.String(), "Invalid Format")
	assert.Empty(t, prov.Requests())
}

func TestBot_ChangeDeviceAccountNotFound(t *testing.T) {
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeAccountNotFound}
	bot, _ := newBot(t, prov)

	reply, _ := send(t, bot, "u1", "Change Device", "account:1 device:2")
	assert.Contains(t, reply.String(), "⚠️ Can not find task for account")
}

func TestBot_BackReturnsToMenu(t *testing.T) {
	bot, _ := newBot(t, nil)

	reply, sess := send(t, bot, "u1", "Search Site", "/back")
	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Equal(t, domain.MainMenu, reply.Options)
}

func TestBot_DataUnavailableResetsToIdle(t *testing.T) {
	bot, src := newBot(t, nil)
	src.Fail(errors.New("unreachable"))

	reply, sess := send(t, bot, "u1", "Search Site", "han")
	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Contains(t, reply.String(), "Failed to load data")

	src.Set(testutils.Workbook(t, testutils.SiteHeader, testutils.SiteRows("HUE", 1)...))
	reply, _ = send(t, bot, "u1", "Search Site", "hue")
	assert.Contains(t, reply.String(), "Found 1 matches")
}

func TestBot_ConcurrentUsersAreIndependent(t *testing.T) {
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess, Delay: 200 * time.Millisecond}
	bot, _ := newBot(t, prov)

	send(t, bot, "a", "Search Site")
	send(t, bot, "b", "Change Device")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, sess, err := bot.HandleText(context.Background(), "b", "account:1 device:2")
		assert.NoError(t, err)
		assert.Equal(t, domain.StateChangingDevice, sess.State)
	}()

	// Give b time to enter the provisioning call.
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	reply, sess := send(t, bot, "a", "DNG01")
	assert.Less(t, time.Since(start), 150*time.Millisecond, "a must not wait for b")
	assert.Equal(t, domain.StateSearching, sess.State)
	assert.Contains(t, reply.String(), "Found 1 matches")

	wg.Wait()
}

func TestBot_SameUserSerializedAcrossProvisioning(t *testing.T) {
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess, Delay: 50 * time.Millisecond}
	bot, _ := newBot(t, prov)
	send(t, bot, "u1", "Change Device")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, err := bot.HandleText(context.Background(), "u1", "account:1 device:2")
		assert.NoError(t, err)
	}()
	time.Sleep(10 * time.Millisecond)

	// Queued behind the in-flight request; observes its outcome state.
	_, sess, err := bot.HandleText(context.Background(), "u1", "/back")
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Equal(t, 3, sess.Turns)
	assert.Len(t, prov.Requests(), 1)
}

func TestBot_NoLostUpdates(t *testing.T) {
	bot, _ := newBot(t, nil)

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := bot.HandleText(context.Background(), "u1", "/help")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := bot.Session(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, n, sess.Turns)
}

func TestBot_Sessions(t *testing.T) {
	bot, _ := newBot(t, nil)
	for i := range 3 {
		send(t, bot, fmt.Sprintf("user-%d", i), "/start")
	}
	send(t, bot, "user-1", "Search Site")

	sessions, err := bot.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "user-0", sessions[0].UserID)
	assert.Equal(t, domain.StateSearching, sessions[1].State)

	_, err = bot.Session(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBot_InvalidInput(t *testing.T) {
	bot, _ := newBot(t, nil)

	_, _, err := bot.HandleText(context.Background(), "", "/start")
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = bot.HandleText(context.Background(), "u1", "\xff")
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = bot.Handle(context.Background(), "u1", domain.Event{Kind: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = bot.Handle(context.Background(), "u1", domain.Event{Kind: domain.EventButton, Command: domain.CommandReset})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = bot.Session(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "rejected events create no session")
}

func TestBot_MaxInputSize(t *testing.T) {
	bot, _ := newBot(t, nil, fieldbot.WithMaxInputSize(8))

	_, _, err := bot.HandleText(context.Background(), "u1", "Search Site")
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = bot.Sanitize("123456789")
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	term, err := bot.Sanitize("han\x00")
	require.NoError(t, err)
	assert.Equal(t, "han", term)

	_, sess := send(t, bot, "u1", "/search")
	assert.Equal(t, domain.StateSearching, sess.State)
}

func TestBot_DeliversInCommitOrder(t *testing.T) {
	var (
		mu          sync.Mutex
		delivered   []int
		transitions int
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) {
			mu.Lock()
			defer mu.Unlock()
			transitions++
		},
	}
	bot, _ := newBot(t, nil, fieldbot.WithLifecycleHooks(hooks))
	deliver := func(_ context.Context, _ domain.Reply, sess *domain.Session) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, sess.Turns)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := bot.HandleTextThen(context.Background(), "u1", "/help", deliver)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, n)
	assert.Equal(t, n, transitions)
	for i, turns := range delivered {
		assert.Equal(t, i+1, turns, "delivery %d out of commit order", i)
	}
}

func TestBot_ReloadAndSearch(t *testing.T) {
	bot, src := newBot(t, nil)

	_, results, err := bot.Search(context.Background(), "dng")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	src.Set(testutils.Workbook(t, testutils.SiteHeader, testutils.SiteRows("DNG", 3)...))
	snap, err := bot.ReloadDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	src.Fail(errors.New("down"))
	_, err = bot.ReloadDataset(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, results, err = bot.Search(context.Background(), "dng")
	require.NoError(t, err)
	assert.Len(t, results, 3, "failed reload keeps previous snapshot")
}

func TestBot_TransitionHook(t *testing.T) {
	var (
		mu     sync.Mutex
		events []domain.TransitionEvent
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, *e)
		},
	}
	bot, _ := newBot(t, nil, fieldbot.WithLifecycleHooks(hooks))

	send(t, bot, "u1", "Search Site", "/back")

	require.Len(t, events, 2)
	assert.Equal(t, domain.StateIdle, events[0].From)
	assert.Equal(t, domain.StateSearching, events[0].To)
	assert.Equal(t, domain.EventButton, events[0].Input)
	assert.Equal(t, domain.StateIdle, events[1].To)
	assert.Equal(t, domain.EventCommand, events[1].Input)
}
