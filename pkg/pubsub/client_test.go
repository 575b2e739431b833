package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "billing-prod"}
	if got := c.topicResourceName("subscription-lifecycle"); got != "projects/billing-prod/topics/subscription-lifecycle" {
		t.Fatalf("unexpected topic name %q", got)
	}
	full := "projects/other/topics/events"
	if got := c.topicResourceName(full); got != full {
		t.Fatalf("full resource names should pass through, got %q", got)
	}
	if got := c.topicResourceName("  "); got != "" {
		t.Fatalf("blank topic should resolve empty, got %q", got)
	}
	if got := (&Client{}).topicResourceName("events"); got != "" {
		t.Fatalf("missing project should resolve empty, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("events") != nil {
		t.Fatalf("nil client should not build publishers")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatalf("expected ping error for nil client")
	}
}
