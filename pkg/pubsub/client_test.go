package pubsub

import (
	"context"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frostline/frostline-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"proj", "domain-events", "projects/proj/topics/domain-events"},
		{"proj", " projects/other/topics/x ", "projects/other/topics/x"},
		{"", "domain-events", ""},
		{"proj", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("x") != nil {
		t.Fatal("nil client must not return a publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestIsNotFoundUnwrapsTopicErrors(t *testing.T) {
	wrapped := fmt.Errorf("topic projects/p/topics/t: %w", status.Error(codes.NotFound, "missing"))
	if !isNotFound(wrapped) {
		t.Fatal("expected wrapped NotFound to be detected")
	}
	denied := fmt.Errorf("topic projects/p/topics/t: %w", status.Error(codes.PermissionDenied, "nope"))
	if isNotFound(denied) || isNotFound(nil) {
		t.Fatal("only NotFound should match")
	}
}
