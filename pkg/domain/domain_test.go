package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyBuilder(t *testing.T) {
	r := domain.NewReply().
		Bold("Title").Line().
		Blank().
		Text("Site: ").Code("HAN01").Text("").
		Options("a", "b").
		Build()

	require.Len(t, r.Lines, 3)
	assert.Equal(t, domain.Line{{Kind: domain.SpanBold, Text: "Title"}}, r.Lines[0])
	assert.Empty(t, r.Lines[1])
	assert.Equal(t, domain.Line{
		{Kind: domain.SpanText, Text: "Site: "},
		{Kind: domain.SpanCode, Text: "HAN01"},
	}, r.Lines[2])
	assert.Equal(t, []string{"a", "b"}, r.Options)
	assert.Equal(t, "Title\n\nSite: HAN01", r.String())
}

func TestReplyBuilder_LinesClosesCurrent(t *testing.T) {
	r := domain.NewReply().
		Text("open").
		Lines(domain.Line{{Kind: domain.SpanText, Text: "x"}}, domain.Line{{Kind: domain.SpanText, Text: "y"}}).
		Build()
	assert.Equal(t, "open\nx\ny", r.String())
}

func TestButtonEvent(t *testing.T) {
	for _, label := range domain.MainMenu {
		ev, ok := domain.ButtonEvent(label)
		require.True(t, ok, label)
		assert.Equal(t, domain.EventButton, ev.Kind)
		assert.NoError(t, ev.Validate())
	}

	_, ok := domain.ButtonEvent("search site")
	assert.False(t, ok, "labels are matched exactly")
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		valid bool
	}{
		{"text", domain.TextEvent("anything"), true},
		{"empty text", domain.TextEvent(""), true},
		{"command", domain.CommandEvent(domain.CommandReset), true},
		{"unknown command", domain.Event{Kind: domain.EventCommand, Command: "dance"}, false},
		{"missing command", domain.Event{Kind: domain.EventCommand}, false},
		{"start button", domain.Event{Kind: domain.EventButton, Command: domain.CommandStart}, false},
		{"unknown kind", domain.Event{Kind: "voice"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidEvent)
			}
		})
	}
}

func TestOutcome_Label(t *testing.T) {
	assert.Equal(t, "✅ Success", domain.OutcomeSuccess.Label())
	assert.Equal(t, "⚠️ Can not find task for account", domain.OutcomeAccountNotFound.Label())
	assert.Equal(t, "⚠️ Can not find device", domain.OutcomeDeviceNotFound.Label())
	assert.Equal(t, "❌ Unknown response", domain.OutcomeUnknown.Label())
	assert.Equal(t, "❌ Unknown response", domain.Outcome("").Label())
}

func TestSession(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := domain.NewSession("u1", now)
	assert.Equal(t, domain.StateIdle, s.State)
	assert.Equal(t, now, s.CreatedAt)

	cp := s.Snapshot()
	cp.State = domain.StateSearching
	assert.Equal(t, domain.StateIdle, s.State)

	var nilSession *domain.Session
	assert.Nil(t, nilSession.Snapshot())

	assert.True(t, domain.StateChangingDevice.Valid())
	assert.False(t, domain.DialogState("done").Valid())
}

func TestRecord(t *testing.T) {
	rec := domain.Record{Columns: []string{"Site", "IP", "Note"}, Values: []string{"HAN01", "10.0.0.1"}}

	v, ok := rec.Get("IP")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", v)

	v, ok = rec.Get("Note")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = rec.Get("Missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"Site": "HAN01", "IP": "10.0.0.1", "Note": ""}, rec.Map())

	var snap *domain.Snapshot
	assert.Zero(t, snap.Len())
}
