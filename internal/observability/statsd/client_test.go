package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "workhub_auth"}
	tests := map[string]string{
		"auth.login":     "workhub_auth.auth.login",
		" auth.logout ":  "workhub_auth.auth.logout",
		"with space":     "workhub_auth.with_space",
		".auth.refresh.": "workhub_auth.auth.refresh",
		"":               "",
		"   ":            "",
	}
	for input, want := range tests {
		if got := c.metricName(input); got != want {
			t.Fatalf("metricName(%q) = %q, want %q", input, got, want)
		}
	}

	bare := &Client{}
	if got := bare.metricName("auth.login"); got != "auth.login" {
		t.Fatalf("unprefixed metricName = %q", got)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(map[string]string{
		"result": " ok ",
		"method": "password",
		"":       "ignored",
	})
	want := "|#method:password,result:ok"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil); got != "" {
		t.Fatalf("formatTags(nil) = %q, want empty", got)
	}
	if got := formatTags(map[string]string{"": "x"}); got != "" {
		t.Fatalf("formatTags with only empty keys = %q, want empty", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	var c *Client
	c.Count("auth.login", 1, nil)
	c.Timing("auth.login", time.Second, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}

func TestDisabledClientSwallowsWrites(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false, Address: "localhost:8125"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.Count("auth.login", 1, map[string]string{"result": "ok"})
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestClientWritesLineProtocol(t *testing.T) {
	t.Parallel()

	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	client, err := NewClient(Config{
		Enabled: true,
		Address: server.LocalAddr().String(),
		Prefix:  "workhub_auth",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	client.Count("auth.login", 1, map[string]string{"method": "password", "result": "ok"})

	buf := make([]byte, 512)
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	line := string(buf[:n])
	want := "workhub_auth.auth.login:1|c|#method:password,result:ok"
	if line != want {
		t.Fatalf("line = %q, want %q", line, want)
	}
	if !strings.HasSuffix(line, "result:ok") {
		t.Fatalf("tags not sorted: %q", line)
	}
}

func TestClientCloseTwice(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{enabled: true, conn: clientConn}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
