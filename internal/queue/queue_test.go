package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, StudyActivity{CourseID: "go-basics", Day: "2026-03-10"}))

	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	a := <-messages
	assert.Equal(t, "go-basics", a.CourseID)
	assert.Equal(t, "2026-03-10", a.Day)
}

func TestInMemoryRejectsIncompleteActivity(t *testing.T) {
	q := NewInMemory(4)
	ctx := context.Background()

	err := q.Publish(ctx, StudyActivity{CourseID: "go-basics"})
	assert.ErrorIs(t, err, ErrInvalidActivity)
	err = q.Publish(ctx, StudyActivity{Day: "2026-03-10"})
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Publish(ctx, StudyActivity{CourseID: "a", Day: "2026-03-10"}))

	// Queue full and context canceled: publish must not block forever.
	cancel()
	err := q.Publish(ctx, StudyActivity{CourseID: "b", Day: "2026-03-10"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := StudyActivity{CourseID: "databases", Day: "2026-03-10"}
	payload, err := encode(a)
	require.NoError(t, err)

	got, err := decode(payload)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	_, err := decode("not json")
	assert.Error(t, err)

	// Well-formed JSON still needs both fields.
	_, err = decode(`{"courseId":"go-basics"}`)
	assert.ErrorIs(t, err, ErrInvalidActivity)
	_, err = decode(`{"day":"2026-03-10"}`)
	assert.ErrorIs(t, err, ErrInvalidActivity)
	_, err = decode(`{}`)
	assert.ErrorIs(t, err, ErrInvalidActivity)
}
