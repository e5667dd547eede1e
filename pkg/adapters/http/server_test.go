package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/testutils"
	fbhttp "github.com/aretw0/fieldbot/pkg/adapters/http"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *memory.Source) {
	t.Helper()
	rows := append(testutils.SiteRows("HAN", 3), []string{"9", "DNG01", "10.9.9.9", "BTS-9"})
	src := memory.NewSource(testutils.Workbook(t, testutils.SiteHeader, rows...))
	bot, err := fieldbot.New(
		fieldbot.WithDatasetSource(src),
		fieldbot.WithProvisioner(&testutils.StubProvisioner{Outcome: domain.OutcomeSuccess}),
	)
	require.NoError(t, err)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	srv := httptest.NewServer(fbhttp.NewHandler(bot, fbhttp.WithMetricsHandler(metrics)))
	t.Cleanup(srv.Close)
	return srv, src
}

func postMessage(t *testing.T, srv *httptest.Server, userID, text string) (*http.Response, fbhttp.MessageResponse) {
	t.Helper()
	body, err := json.Marshal(fbhttp.MessageRequest{Text: text})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/users/"+userID+"/messages", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out fbhttp.MessageResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestServer_Conversation(t *testing.T) {
	srv, _ := newServer(t)

	resp, out := postMessage(t, srv, "42", "/start")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StateIdle, out.State)
	assert.Equal(t, domain.MainMenu, out.Reply.Options)
	assert.Contains(t, out.Reply.HTML, "<b>Welcome to Field Bot!</b>")

	_, out = postMessage(t, srv, "42", "Search Site")
	assert.Equal(t, domain.StateSearching, out.State)

	_, out = postMessage(t, srv, "42", "DNG01")
	assert.Equal(t, domain.StateSearching, out.State)
	assert.Equal(t, 3, out.Turns)
	assert.Contains(t, out.Reply.Plain, "Site: DNG01")
	assert.Contains(t, out.Reply.HTML, "<code>DNG01</code>")
	assert.Contains(t, out.Reply.Markdown, "`DNG01`")
}

func TestServer_RejectsBadInput(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/v1/users/42/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postMessage(t, srv, "42", strings.Repeat("a", 5000))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Session(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/users/nobody/session")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postMessage(t, srv, "b", "Change Device")
	postMessage(t, srv, "a", "/start")

	resp, err = http.Get(srv.URL + "/v1/users/b/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	assert.Equal(t, "b", sess.UserID)
	assert.Equal(t, domain.StateChangingDevice, sess.State)

	resp2, err := http.Get(srv.URL + "/v1/sessions")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var list []domain.Session
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].UserID)
	assert.Equal(t, "b", list[1].UserID)
}

func TestServer_ReloadDataset(t *testing.T) {
	srv, src := newServer(t)

	resp, err := http.Post(srv.URL+"/v1/dataset/reload", "application/json", nil)
	require.NoError(t, err)
	var out fbhttp.ReloadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, out.Records)

	src.Fail(errors.New("gateway down"))
	resp, err = http.Post(srv.URL+"/v1/dataset/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_Graph(t *testing.T) {
	srv, _ := newServer(t)
	postMessage(t, srv, "42", "Search Site")

	resp, err := http.Get(srv.URL + "/v1/graph?user=42")
	require.NoError(t, err)
	defer resp.Body.Close()

	var sb strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, sb.String(), "graph TD")
	assert.Contains(t, sb.String(), "searching")
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newServer(t)

	for _, path := range []string{"/health", "/info", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), path)
	}
}

func TestServer_StreamsReplies(t *testing.T) {
	srv, _ := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/users/42/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	readUntil("data: connected")
	postMessage(t, srv, "42", "Search Site")

	readUntil("event: reply")
	data := strings.TrimPrefix(readUntil("data: "), "data: ")

	var out fbhttp.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(data), &out))
	assert.Equal(t, "42", out.UserID)
	assert.Equal(t, domain.StateSearching, out.State)
}

func TestServer_StreamsInCommitOrder(t *testing.T) {
	srv, _ := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/users/7/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		t.Fatal("stream ended early")
		return ""
	}
	require.Equal(t, "connected", nextData())

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := http.Post(srv.URL+"/v1/users/7/messages", "application/json", strings.NewReader(`{"text":"/help"}`))
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, r.StatusCode)
				r.Body.Close()
			}
		}()
	}
	wg.Wait()

	for want := 1; want <= n; want++ {
		var out fbhttp.MessageResponse
		require.NoError(t, json.Unmarshal([]byte(nextData()), &out))
		assert.Equal(t, want, out.Turns)
	}
}
