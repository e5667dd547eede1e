package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/aretw0/fieldbot/internal/testutils"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/dataset"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine      *runtime.Engine
	source      *memory.Source
	provisioner *testutils.StubProvisioner
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	rows := append(testutils.SiteRows("HAN", 7), []string{"99", "DNG01", "10.9.9.9", "BTS-99"})
	src := memory.NewSource(testutils.Workbook(t, testutils.SiteHeader, rows...))
	prov := &testutils.StubProvisioner{Outcome: domain.OutcomeSuccess}
	return &fixture{
		engine:      runtime.NewEngine(dataset.NewCache(src), prov, opts...),
		source:      src,
		provisioner: prov,
	}
}

func session(state domain.DialogState) *domain.Session {
	s := domain.NewSession("u1", time.Unix(0, 0))
	s.State = state
	return s
}

func button(t *testing.T, label string) domain.Event {
	t.Helper()
	ev, ok := domain.ButtonEvent(label)
	require.True(t, ok)
	return ev
}

func TestEngine_TransitionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		from  domain.DialogState
		event domain.Event
		want  domain.DialogState
		reply string
	}{
		{"idle search button", domain.StateIdle, button(t, domain.ButtonSearch), domain.StateSearching, "Search Site Mode"},
		{"idle change button", domain.StateIdle, button(t, domain.ButtonChangeDevice), domain.StateChangingDevice, "Change Device Mode"},
		{"idle help button", domain.StateIdle, button(t, domain.ButtonHelp), domain.StateIdle, "Field Bot Help"},
		{"idle free text", domain.StateIdle, domain.TextEvent("hello"), domain.StateIdle, "choose an operation"},
		{"idle start", domain.StateIdle, domain.CommandEvent(domain.CommandStart), domain.StateIdle, "Welcome"},
		{"searching blank", domain.StateSearching, domain.TextEvent("   "), domain.StateSearching, "Enter your search term"},
		{"searching reset", domain.StateSearching, domain.CommandEvent(domain.CommandReset), domain.StateIdle, "Welcome"},
		{"searching help", domain.StateSearching, domain.CommandEvent(domain.CommandHelp), domain.StateSearching, "Field Bot Help"},
		{"searching start", domain.StateSearching, domain.CommandEvent(domain.CommandStart), domain.StateIdle, "Welcome"},
		{"searching to change", domain.StateSearching, domain.CommandEvent(domain.CommandChangeDevice), domain.StateChangingDevice, "Change Device Mode"},
		{"changing reset", domain.StateChangingDevice, domain.CommandEvent(domain.CommandReset), domain.StateIdle, "Welcome"},
		{"changing help", domain.StateChangingDevice, domain.CommandEvent(domain.CommandHelp), domain.StateChangingDevice, "Field Bot Help"},
		{"changing to search", domain.StateChangingDevice, domain.CommandEvent(domain.CommandSearch), domain.StateSearching, "Search Site Mode"},
		{"changing bad format", domain.StateChangingDevice, domain.TextEvent("account:1"), domain.StateChangingDevice, "Invalid Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, next, err := f.engine.Step(ctx, session(tt.from), tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
			assert.Contains(t, reply.String(), tt.reply)
		})
	}
}

func TestEngine_WelcomeOffersMenu(t *testing.T) {
	f := newFixture(t)
	reply, _, err := f.engine.Step(context.Background(), session(domain.StateIdle), domain.CommandEvent(domain.CommandStart))
	require.NoError(t, err)
	assert.Equal(t, domain.MainMenu, reply.Options)
}

func TestEngine_ButtonLabelIsSearchTermWhileSearching(t *testing.T) {
	f := newFixture(t)
	reply, next, err := f.engine.Step(context.Background(), session(domain.StateSearching), button(t, domain.ButtonHelp))
	require.NoError(t, err)
	assert.Equal(t, domain.StateSearching, next)
	assert.Contains(t, reply.String(), "No matches found for 'Help'")
}

func TestEngine_SearchTruncates(t *testing.T) {
	f := newFixture(t)
	reply, next, err := f.engine.Step(context.Background(), session(domain.StateSearching), domain.TextEvent("han"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateSearching, next)

	out := reply.String()
	assert.Contains(t, out, "Found 7 matches for 'han'")
	assert.Contains(t, out, "...and 2 more results not shown")
	assert.Contains(t, out, "HAN05")
	assert.NotContains(t, out, "HAN06")
	assert.NotContains(t, out, "BTS Name:")
}

func TestEngine_SearchNoMatches(t *testing.T) {
	f := newFixture(t)
	reply, next, err := f.engine.Step(context.Background(), session(domain.StateSearching), domain.TextEvent("zzz"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateSearching, next)
	assert.Contains(t, reply.String(), "No matches found for 'zzz'")
}

func TestEngine_DataUnavailable(t *testing.T) {
	f := newFixture(t)
	f.source.Fail(errors.New("connection refused"))

	reply, next, err := f.engine.Step(context.Background(), session(domain.StateSearching), domain.TextEvent("han"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, next)
	assert.Contains(t, reply.String(), "Failed to load data")
	assert.Equal(t, domain.MainMenu, reply.Options)
}

func TestEngine_ChangeDevice(t *testing.T) {
	f := newFixture(t)
	f.provisioner.Outcome = domain.OutcomeAccountNotFound

	reply, next, err := f.engine.Step(context.Background(), session(domain.StateChangingDevice), domain.TextEvent("account:12345\ndevice:ABC"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateChangingDevice, next)

	out := reply.String()
	assert.Contains(t, out, "Can not find task for account")
	assert.Contains(t, out, "Account: 12345")
	assert.Contains(t, out, "Device Code: ABC")
	assert.Equal(t, []domain.ChangeRequest{{Account: "12345", DeviceCode: "ABC"}}, f.provisioner.Requests())
}

func TestEngine_ChangeDeviceTransportError(t *testing.T) {
	f := newFixture(t)
	f.provisioner.Err = fmt.Errorf("%w: dial tcp: refused", domain.ErrTransport)

	reply, next, err := f.engine.Step(context.Background(), session(domain.StateChangingDevice), domain.TextEvent("account:1 device:2"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateChangingDevice, next)
	assert.Contains(t, reply.String(), "Error Processing Request")
	assert.Contains(t, reply.String(), "dial tcp: refused")
}

func TestEngine_FormatErrorSkipsProvisioning(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.engine.Step(context.Background(), session(domain.StateChangingDevice), domain.TextEvent("account:12345"))
	require.NoError(t, err)
	assert.Empty(t, f.provisioner.Requests())
}

func TestEngine_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Step(ctx, nil, domain.TextEvent("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = f.engine.Step(ctx, session(domain.StateIdle), domain.Event{Kind: "sticker"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = f.engine.Step(ctx, session(domain.StateIdle), domain.Event{Kind: domain.EventCommand, Command: "launch"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, _, err = f.engine.Step(ctx, session("lost"), domain.TextEvent("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestEngine_Deterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := []domain.Event{
		domain.TextEvent("han"),
		domain.TextEvent("DNG"),
		domain.CommandEvent(domain.CommandHelp),
	}
	for _, ev := range events {
		r1, s1, err1 := f.engine.Step(ctx, session(domain.StateSearching), ev)
		r2, s2, err2 := f.engine.Step(ctx, session(domain.StateSearching), ev)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, r1, r2)
		assert.Equal(t, s1, s2)
	}
}

func TestEngine_SearchHook(t *testing.T) {
	var got *domain.SearchEvent
	f := newFixture(t, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnSearch: func(ctx context.Context, e *domain.SearchEvent) { got = e },
	}))

	_, _, err := f.engine.Step(context.Background(), session(domain.StateSearching), domain.TextEvent(" dng "))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dng", got.Term)
	assert.Equal(t, 1, got.Matches)
	assert.Equal(t, "u1", got.UserID)
}
