package localgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/internmatch/go-session"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := newBroadcaster(session.DefaultLogger())
	defer b.close()

	ch, release := b.subscribe()
	defer release()

	b.publish(session.SessionEvent{Type: session.SessionEventSignedIn})
	b.publish(session.SessionEvent{Type: session.SessionEventUserUpdated})
	b.publish(session.SessionEvent{Type: session.SessionEventSignedOut})

	got := drain(ch)
	require.Len(t, got, 3)
	assert.Equal(t, session.SessionEventSignedIn, got[0].Type)
	assert.Equal(t, session.SessionEventUserUpdated, got[1].Type)
	assert.Equal(t, session.SessionEventSignedOut, got[2].Type)
}

func TestBroadcasterFansOutToEverySubscriber(t *testing.T) {
	b := newBroadcaster(session.DefaultLogger())
	defer b.close()

	first, releaseFirst := b.subscribe()
	defer releaseFirst()
	second, releaseSecond := b.subscribe()
	defer releaseSecond()

	b.publish(session.SessionEvent{Type: session.SessionEventSignedIn})

	assert.Len(t, drain(first), 1)
	assert.Len(t, drain(second), 1)
}

func TestBroadcasterDropsWhenSubscriberStalls(t *testing.T) {
	b := newBroadcaster(session.DefaultLogger())
	defer b.close()

	ch, release := b.subscribe()
	defer release()

	// fill the buffer and one more; publish must not block
	for i := 0; i < subscriberBuffer+1; i++ {
		b.publish(session.SessionEvent{Type: session.SessionEventSignedIn})
	}

	assert.Len(t, drain(ch), subscriberBuffer)
}

func TestBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := newBroadcaster(session.DefaultLogger())
	defer b.close()

	ch, release := b.subscribe()
	release()

	// channel is closed once released
	_, open := <-ch
	assert.False(t, open)

	// releasing twice is fine, and publishing after release does not panic
	release()
	b.publish(session.SessionEvent{Type: session.SessionEventSignedOut})
}

func TestBroadcasterCloseClosesSubscribers(t *testing.T) {
	b := newBroadcaster(session.DefaultLogger())

	ch, release := b.subscribe()
	b.close()

	_, open := <-ch
	assert.False(t, open)

	// release after close must not panic on the already-removed entry
	release()
}
