package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092 ,, kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("empty input should yield nil")
	}
}

func TestHeaderValue(t *testing.T) {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte("file.created")},
	}
	if v := HeaderValue(headers, "event_type"); v != "file.created" {
		t.Fatalf("unexpected value: %s", v)
	}
	if v := HeaderValue(headers, "missing"); v != "" {
		t.Fatalf("expected empty for missing key, got %s", v)
	}
}
