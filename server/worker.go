package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/tessera/vm"
)

// ErrWorkerStopped is returned by Do once the worker has been stopped.
var ErrWorkerStopped = errors.New("worker stopped")

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func(*vm.Interpreter) interface{}
	done chan result
}

type result struct {
	value interface{}
	err   error
}

// Worker serializes all access to one interpreter through a single
// goroutine. An Interpreter is not safe for concurrent use, so every
// handler touching a session goes through its worker.
type Worker struct {
	in       *vm.Interpreter
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(in *vm.Interpreter) *Worker {
	w := &Worker{
		in:       in,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn on the interpreter, recovering from panics.
func (w *Worker) execute(fn func(*vm.Interpreter) interface{}) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("%v", r)
		}
	}()
	res.value = fn(w.in)
	return res
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. A panic inside fn is returned as an error.
func (w *Worker) Do(fn func(*vm.Interpreter) interface{}) (interface{}, error) {
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}

	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
