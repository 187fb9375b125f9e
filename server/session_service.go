package server

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/tessera/compiler"
	"github.com/chazu/tessera/vm"
)

const (
	SessionServiceName = "tessera.v1.SessionService"

	CreateSessionProcedure  = "/" + SessionServiceName + "/CreateSession"
	DestroySessionProcedure = "/" + SessionServiceName + "/DestroySession"
	CompleteProcedure       = "/" + SessionServiceName + "/Complete"
)

// SessionService manages evaluation sessions:
//
//	CreateSession   {name?}             -> {session}
//	DestroySession  {session}           -> {}
//	Complete        {prefix, session?}  -> {completions: [...]}
type SessionService struct {
	sessions *SessionStore
	factory  InterpreterFactory
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions *SessionStore, factory InterpreterFactory) *SessionService {
	return &SessionService{sessions: sessions, factory: factory}
}

// CreateSession creates a new evaluation session.
func (s *SessionService) CreateSession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	resp, err := s.createSession(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// DestroySession destroys a session and stops its interpreter.
func (s *SessionService) DestroySession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	resp, err := s.destroySession(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Complete returns names starting with prefix: keywords, host functions
// and, within a session, everything the session has defined.
func (s *SessionService) Complete(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	resp, err := s.complete(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *SessionService) createSession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session := s.sessions.Create(stringField(req, "name"))
	return structpb.NewStruct(map[string]interface{}{"session": session.ID})
}

func (s *SessionService) destroySession(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session")
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("session is required"))
	}
	if !s.sessions.Destroy(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (s *SessionService) complete(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	prefix := stringField(req, "prefix")

	var names []string
	if id := stringField(req, "session"); id != "" {
		session, ok := s.sessions.Get(id)
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
		}
		res, err := session.worker.Do(func(in *vm.Interpreter) interface{} {
			return in.REPLScope().Names()
		})
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		names = res.([]string)
	} else {
		names = s.factory(&bytes.Buffer{}).Globals().Names()
	}

	completions := []interface{}{}
	for _, name := range mergeNames(compiler.Keywords(), names) {
		if strings.HasPrefix(name, prefix) {
			completions = append(completions, name)
		}
	}
	return structpb.NewStruct(map[string]interface{}{"completions": completions})
}

// mergeNames returns the sorted union of the given name lists.
func mergeNames(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
