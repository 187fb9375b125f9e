package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/tessera/compiler"
	"github.com/chazu/tessera/vm"
)

// Procedure paths shared by the Connect and gRPC transports.
const (
	EvaluationServiceName = "tessera.v1.EvaluationService"

	EvaluateProcedure    = "/" + EvaluationServiceName + "/Evaluate"
	CheckSyntaxProcedure = "/" + EvaluationServiceName + "/CheckSyntax"
)

// EvalService evaluates source text. Requests and responses are
// google.protobuf.Struct messages:
//
//	Evaluate     {source, session?} -> {success, result, type, value?, output, session?, error?}
//	CheckSyntax  {source}           -> {valid, diagnostics: [{line, column, message, severity}]}
//
// Without a session each Evaluate runs in a fresh interpreter. With one,
// it runs on the session's worker and definitions persist.
type EvalService struct {
	sessions *SessionStore
	factory  InterpreterFactory
	timeout  time.Duration
}

// NewEvalService creates an EvalService.
func NewEvalService(sessions *SessionStore, factory InterpreterFactory, timeout time.Duration) *EvalService {
	return &EvalService{
		sessions: sessions,
		factory:  factory,
		timeout:  timeout,
	}
}

// Evaluate runs source and reports its value, printed output and error.
// Evaluation failures are reported in the response, not as RPC errors.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	resp, err := s.evaluate(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// CheckSyntax parses source without running it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	resp, err := s.checkSyntax(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *EvalService) evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source := stringField(req, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := stringField(req, "session")
	if id == "" {
		out := &bytes.Buffer{}
		in := s.factory(out)
		v, err := in.Eval(ctx, source)
		return evaluateResponse(v, err, out.String(), "")
	}

	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}

	// The response is built on the worker so that values are not read
	// while another request mutates them.
	res, err := session.worker.Do(func(in *vm.Interpreter) interface{} {
		v, evalErr := in.Eval(ctx, source)
		resp, err := evaluateResponse(v, evalErr, session.takeOutput(), session.ID)
		if err != nil {
			return err
		}
		return resp
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err, ok := res.(error); ok {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return res.(*structpb.Struct), nil
}

func (s *EvalService) checkSyntax(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source := stringField(req, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	diagnostics := []interface{}{}
	if _, diag := CheckSource(source); diag != nil {
		diagnostics = append(diagnostics, map[string]interface{}{
			"line":     diag.Line,
			"column":   diag.Column,
			"message":  diag.Message,
			"severity": "error",
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"valid":       len(diagnostics) == 0,
		"diagnostics": diagnostics,
	})
}

// evaluateResponse renders the outcome of one evaluation.
func evaluateResponse(v vm.Value, evalErr error, output, session string) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"success": evalErr == nil,
		"output":  output,
	}
	if session != "" {
		fields["session"] = session
	}
	if evalErr != nil {
		fields["error"] = describeError(evalErr)
	} else {
		fields["result"] = vm.Inspect(v)
		fields["type"] = vm.TypeName(v)
		if data, ok := vm.ToGo(v); ok {
			fields["value"] = data
		}
	}
	return structpb.NewStruct(fields)
}

// describeError classifies err for clients. Kinds are "syntax", "link",
// an evaluation error kind such as "unbound name", or "internal".
func describeError(err error) map[string]interface{} {
	fields := map[string]interface{}{"message": err.Error()}

	var linkErr *vm.LinkError
	var evalErr *vm.EvalError
	var lexErr *compiler.LexError
	var parseErr *compiler.ParseError
	switch {
	case errors.As(err, &linkErr):
		fields["kind"] = "link"
		fields["module"] = linkErr.Module
	case errors.As(err, &evalErr):
		fields["kind"] = evalErr.Kind.String()
		if evalErr.Module != "" {
			fields["module"] = evalErr.Module
		}
		if evalErr.Pos.Line > 0 {
			fields["line"] = evalErr.Pos.Line
			fields["column"] = evalErr.Pos.Column
		}
	case errors.As(err, &lexErr):
		fields["kind"] = "syntax"
		fields["line"] = lexErr.Pos.Line
		fields["column"] = lexErr.Pos.Column
	case errors.As(err, &parseErr):
		fields["kind"] = "syntax"
		fields["line"] = parseErr.Pos.Line
		fields["column"] = parseErr.Pos.Column
	default:
		fields["kind"] = "internal"
	}
	return fields
}

// stringField returns the string value of a request field, or "".
func stringField(msg *structpb.Struct, name string) string {
	if msg == nil {
		return ""
	}
	if v, ok := msg.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}
