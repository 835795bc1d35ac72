package eventbus

import (
	"context"
	"testing"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings, pongs []int
	unsub := Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N) })
	Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	ctx := context.Background()
	Publish(ctx, ping{1})
	Publish(ctx, pong{2})
	Publish(ctx, ping{3})

	if len(pings) != 2 || pings[0] != 1 || pings[1] != 3 {
		t.Fatalf("ping handler got %v", pings)
	}
	if len(pongs) != 1 || pongs[0] != 2 {
		t.Fatalf("pong handler got %v", pongs)
	}

	unsub()
	Publish(ctx, ping{4})
	if len(pings) != 2 {
		t.Fatalf("unsubscribed handler still invoked: %v", pings)
	}
}

func TestNoBusInstalled(t *testing.T) {
	Use(nil)
	if Enabled() {
		t.Fatal("Enabled must be false without a bus")
	}
	// Neither of these may panic.
	unsub := Subscribe(func(context.Context, ping) {})
	unsub()
	Publish(context.Background(), ping{1})
}
