package server

import (
	"bytes"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/tessera/vm"
)

// ---------------------------------------------------------------------------
// CreateSession / DestroySession
// ---------------------------------------------------------------------------

func TestCreateSession_WithName(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.sessionSvc.CreateSession(bg(), connectReq(t, map[string]interface{}{"name": "scratch"}))
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	id := str(resp.Msg, "session")
	if id == "" {
		t.Fatal("CreateSession should return a non-empty session ID")
	}

	session, ok := s.Sessions().Get(id)
	if !ok {
		t.Fatal("session should be retrievable after creation")
	}
	if session.Name != "scratch" {
		t.Errorf("Session.Name = %q, want %q", session.Name, "scratch")
	}
}

func TestCreateSession_UniqueIDs(t *testing.T) {
	s := newTestServer(t)
	a := createSession(t, s)
	b := createSession(t, s)
	if a == b {
		t.Errorf("two sessions share ID %q", a)
	}
}

func TestDestroySession_Valid(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	if _, err := s.sessionSvc.DestroySession(bg(), connectReq(t, map[string]interface{}{"session": id})); err != nil {
		t.Fatalf("DestroySession returned error: %v", err)
	}
	if _, ok := s.Sessions().Get(id); ok {
		t.Error("session should be gone after DestroySession")
	}

	_, err := s.eval.Evaluate(bg(), connectReq(t, map[string]interface{}{"source": "1", "session": id}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Evaluate in destroyed session: code = %v, want %v", connect.CodeOf(err), connect.CodeNotFound)
	}
}

func TestDestroySession_EmptyID(t *testing.T) {
	s := newTestServer(t)
	_, err := s.sessionSvc.DestroySession(bg(), connectReq(t, map[string]interface{}{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want %v", connect.CodeOf(err), connect.CodeInvalidArgument)
	}
}

func TestDestroySession_NotFound(t *testing.T) {
	s := newTestServer(t)
	_, err := s.sessionSvc.DestroySession(bg(), connectReq(t, map[string]interface{}{"session": "s-404"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("code = %v, want %v", connect.CodeOf(err), connect.CodeNotFound)
	}
}

// ---------------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------------

func completions(t *testing.T, s *Server, fields map[string]interface{}) []string {
	t.Helper()
	resp, err := s.sessionSvc.Complete(bg(), connectReq(t, fields))
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	var out []string
	for _, v := range resp.Msg.GetFields()["completions"].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestComplete_KeywordsAndHostFunctions(t *testing.T) {
	s := newTestServer(t)

	got := completions(t, s, map[string]interface{}{"prefix": "f"})
	for _, want := range []string{"false", "fn"} {
		if !contains(got, want) {
			t.Errorf("completions for %q = %v, missing %q", "f", got, want)
		}
	}

	got = completions(t, s, map[string]interface{}{"prefix": "pr"})
	if !contains(got, "print") {
		t.Errorf("completions for %q = %v, missing print", "pr", got)
	}
}

func TestComplete_SessionDefinitions(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	evaluate(t, s, map[string]interface{}{"source": "var width = 3\nfn widen(x) { return x * width }", "session": id})

	got := completions(t, s, map[string]interface{}{"prefix": "wid", "session": id})
	if len(got) != 2 || got[0] != "widen" || got[1] != "width" {
		t.Errorf("completions = %v, want [widen width]", got)
	}
}

func TestComplete_NoMatches(t *testing.T) {
	s := newTestServer(t)
	if got := completions(t, s, map[string]interface{}{"prefix": "zzzz"}); len(got) != 0 {
		t.Errorf("completions = %v, want none", got)
	}
}

func TestComplete_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	_, err := s.sessionSvc.Complete(bg(), connect.NewRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		"prefix":  structpb.NewStringValue("a"),
		"session": structpb.NewStringValue("s-0"),
	}}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("code = %v, want %v", connect.CodeOf(err), connect.CodeNotFound)
	}
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

func newTestStore() *SessionStore {
	return NewSessionStore(func(out *bytes.Buffer) *vm.Interpreter {
		in := vm.NewInterpreter()
		vm.RegisterHostFuncs(in, out)
		return in
	})
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	session := store.Create("test")
	got, ok := store.Get(session.ID)
	if !ok || got != session {
		t.Fatalf("Get(%q) = %v, %v", session.ID, got, ok)
	}
	if ids := store.IDs(); len(ids) != 1 || ids[0] != session.ID {
		t.Errorf("IDs = %v, want [%s]", ids, session.ID)
	}
}

func TestSessionStore_Destroy(t *testing.T) {
	store := newTestStore()
	session := store.Create("")

	if !store.Destroy(session.ID) {
		t.Fatal("Destroy of a live session reported false")
	}
	if store.Destroy(session.ID) {
		t.Error("second Destroy reported true")
	}
	if _, err := session.worker.Do(func(*vm.Interpreter) interface{} { return nil }); err != ErrWorkerStopped {
		t.Errorf("worker of a destroyed session: err = %v, want ErrWorkerStopped", err)
	}
}

func TestSessionStore_Close(t *testing.T) {
	store := newTestStore()
	store.Create("a")
	store.Create("b")
	store.Close()
	if ids := store.IDs(); len(ids) != 0 {
		t.Errorf("IDs after Close = %v", ids)
	}
}
