package notify

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	natsmodule "github.com/testcontainers/testcontainers-go/modules/nats"
)

func TestNATSPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("nats container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := natsmodule.Run(ctx, "nats:2.10-alpine")
	if err != nil {
		t.Skipf("nats container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	nc, err := ConnectNATS(url)
	require.NoError(t, err)
	n := NewNATS(nc, "")
	defer n.Close()

	msgs := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(DefaultSubject, msgs)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	ev := Event{Action: "start", Payload: StartPayload{Chosen: "fire", Generated: "4"}, User: "ash", At: at}
	require.NoError(t, n.Notify(ctx, ev))

	want, err := Encode(ev)
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.JSONEq(t, string(want), string(msg.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
