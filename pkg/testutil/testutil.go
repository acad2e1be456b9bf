package testutil

import (
	"testing"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// RequireEqualProto asserts that the two passed protocol buffer
// messages are equal. Upon failure, both messages are printed in JSON
// form.
func RequireEqualProto(t *testing.T, want, got proto.Message) {
	t.Helper()
	if !proto.Equal(want, got) {
		t.Fatalf("Not equal:\nWant:\n\n%s\n\nGot:\n\n%s", mustMarshalToString(t, want), mustMarshalToString(t, got))
	}
}

// RequireEqualStatus asserts that two grpc Statuses are equal.
func RequireEqualStatus(t *testing.T, want, got error) {
	t.Helper()
	RequireEqualProto(t, status.Convert(want).Proto(), status.Convert(got).Proto())
}

func mustMarshalToString(t *testing.T, m proto.Message) string {
	t.Helper()
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(m)
	if err != nil {
		t.Fatalf("Failed to marshal message: %s", err)
	}
	return string(data)
}
