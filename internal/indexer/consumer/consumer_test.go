package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/trie-text-search/pkg/errors"
)

type statusCall struct {
	id, status, reason string
}

type fakeStatuses struct {
	calls    []statusCall
	failures int
	err      error
	attempts int
}

func (f *fakeStatuses) UpdateStatus(_ context.Context, id, status, reason string) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("db down")
	}
	f.calls = append(f.calls, statusCall{id, status, reason})
	return nil
}

type fakeTracker struct {
	events []analytics.IndexEvent
}

func (f *fakeTracker) TrackIndex(event analytics.IndexEvent) {
	f.events = append(f.events, event)
}

func encode(t *testing.T, event ingestion.IngestEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestHandleMessageIndexes(t *testing.T) {
	c := catalog.New(1<<20, 1, nil)
	statuses := &fakeStatuses{}
	tracker := &fakeTracker{}
	handle := HandleMessage(c, statuses, tracker)

	err := handle(context.Background(), []byte("pets"), encode(t, ingestion.IngestEvent{
		DocumentID: "1", Name: "pets", Body: "the cat sat\non the mat",
	}))
	require.NoError(t, err)

	engine, err := c.Get("pets")
	require.NoError(t, err)
	n, err := engine.Count("the")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []statusCall{{"1", ingestion.StatusIndexed, ""}}, statuses.calls)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, "indexed", tracker.events[0].Status)
	assert.Equal(t, 2, tracker.events[0].Lines)
	assert.Equal(t, 5, tracker.events[0].UniqueWords)
}

func TestHandleMessageFailure(t *testing.T) {
	c := catalog.New(4, 1, nil)
	statuses := &fakeStatuses{}
	tracker := &fakeTracker{}
	handle := HandleMessage(c, statuses, tracker)

	err := handle(context.Background(), nil, encode(t, ingestion.IngestEvent{
		DocumentID: "2", Name: "big", Body: "far too long",
	}))
	require.NoError(t, err)
	require.Len(t, statuses.calls, 1)
	assert.Equal(t, ingestion.StatusFailed, statuses.calls[0].status)
	assert.Contains(t, statuses.calls[0].reason, "document too large")
	assert.Equal(t, "failed", tracker.events[0].Status)
	assert.Zero(t, c.Len())
}

func TestHandleMessageSkipsGarbage(t *testing.T) {
	statuses := &fakeStatuses{}
	handle := HandleMessage(catalog.New(1<<20, 1, nil), statuses, nil)
	assert.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	assert.Empty(t, statuses.calls)
}

func TestHandleMessageStatusRetry(t *testing.T) {
	statuses := &fakeStatuses{failures: 1}
	handle := HandleMessage(catalog.New(1<<20, 1, nil), statuses, nil)
	err := handle(context.Background(), nil, encode(t, ingestion.IngestEvent{DocumentID: "3", Name: "a", Body: "x"}))
	require.NoError(t, err)
	assert.Len(t, statuses.calls, 1)

	statuses = &fakeStatuses{failures: 10}
	handle = HandleMessage(catalog.New(1<<20, 1, nil), statuses, nil)
	err = handle(context.Background(), nil, encode(t, ingestion.IngestEvent{DocumentID: "4", Name: "a", Body: "x"}))
	assert.ErrorContains(t, err, "recording status of document 4")
}

func TestHandleMessageMissingRowIsAcked(t *testing.T) {
	statuses := &fakeStatuses{err: fmt.Errorf("document 5: %w", apperrors.ErrDocumentNotFound)}
	c := catalog.New(1<<20, 1, nil)
	handle := HandleMessage(c, statuses, nil)

	err := handle(context.Background(), nil, encode(t, ingestion.IngestEvent{DocumentID: "5", Name: "gone", Body: "x"}))
	require.NoError(t, err)
	assert.Equal(t, 1, statuses.attempts)
	assert.Equal(t, 1, c.Len())
}
