package statsd

import (
	"net"
	"testing"
	"time"
)

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(map[string]string{
		"result": " success ",
		"":       "ignored",
		"mode":   "immediate",
	})
	want := "|#mode:immediate,result:success"

	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil); got != "" {
		t.Fatalf("formatTags(nil) = %q, want empty string", got)
	}
	if got := formatTags(map[string]string{" ": "x"}); got != "" {
		t.Fatalf("formatTags with blank keys = %q, want empty string", got)
	}
}

func TestClientEmitsLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled: true,
		Address: pc.LocalAddr().String(),
		Prefix:  "publisher",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	readLine := func() string {
		t.Helper()
		buf := make([]byte, 512)
		if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("set read deadline: %v", err)
		}
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read packet: %v", err)
		}
		return string(buf[:n])
	}

	client.Count("job.submitted", 1, map[string]string{"mode": "immediate"})
	if got, want := readLine(), "publisher.job.submitted:1|c|#mode:immediate"; got != want {
		t.Fatalf("count line = %q, want %q", got, want)
	}

	client.Gauge("queue.depth", 12, nil)
	if got, want := readLine(), "publisher.queue.depth:12|g"; got != want {
		t.Fatalf("gauge line = %q, want %q", got, want)
	}

	client.Timing("tick_duration", 1500*time.Millisecond, nil)
	if got, want := readLine(), "publisher.tick_duration:1500|ms"; got != want {
		t.Fatalf("timing line = %q, want %q", got, want)
	}
}

func TestDisabledClientDropsMetrics(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	// Must not panic with no connection behind it.
	client.Count("job.submitted", 1, nil)
	client.Gauge("queue.depth", 1, nil)
	client.Timing("tick", time.Second, nil)

	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client: %v", err)
	}
}

func TestBlankAddressDisablesClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.enabled {
		t.Fatal("expected client to be disabled with a blank address")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Writes after close are dropped silently.
	client.Count("job.submitted", 1, nil)
}
