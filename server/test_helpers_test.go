package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// newTestServer creates a Server that is stopped when the test ends.
func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	s := New(opts...)
	t.Cleanup(s.Stop)
	return s
}

func bg() context.Context {
	return context.Background()
}

// msg builds a Struct message, failing the test on unsupported values.
func msg(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func connectReq(t *testing.T, fields map[string]interface{}) *connect.Request[structpb.Struct] {
	t.Helper()
	return connect.NewRequest(msg(t, fields))
}

// str returns a string field of a response.
func str(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func boolean(s *structpb.Struct, name string) bool {
	return s.GetFields()[name].GetBoolValue()
}

func sub(s *structpb.Struct, name string) *structpb.Struct {
	return s.GetFields()[name].GetStructValue()
}

// evaluate runs source through the server's EvalService.
func evaluate(t *testing.T, s *Server, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	resp, err := s.eval.Evaluate(bg(), connectReq(t, fields))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	return resp.Msg
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	resp, err := s.sessionSvc.CreateSession(bg(), connectReq(t, map[string]interface{}{}))
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	return str(resp.Msg, "session")
}
