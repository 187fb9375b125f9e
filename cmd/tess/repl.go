package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/chazu/tessera/compiler"
	"github.com/chazu/tessera/vm"
)

const (
	historyFile = ".tess_history"
	promptMain  = "tess> "
	promptCont  = "  ... "
)

const helpText = `REPL commands:
  :help     Show this help
  :globals  List names defined in this session
  :modules  List loaded modules
  :quit     Exit the REPL
`

// runREPL reads statements from the terminal and evaluates them in one
// persistent scope. Input that ends inside an open construct continues on
// the next line.
func runREPL(in *vm.Interpreter, timeout time.Duration) {
	fmt.Println("tessera REPL. Ctrl+C cancels input, Ctrl+D exits. Type :help for commands.")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		return completeLine(in, line)
	})

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readInput(ln)
		if !ok {
			fmt.Println()
			return
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		ln.AppendHistory(src)

		if strings.HasPrefix(src, ":") {
			if quit := replCommand(in, src); quit {
				return
			}
			continue
		}
		evalAndPrint(in, src, timeout)
	}
}

// readInput reads one complete input, prompting for continuation lines
// while the text is incomplete. It reports false at end of input.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if _, err := compiler.Parse(src); err != nil && incomplete(src, err) {
			continue
		}
		return src, true
	}
}

// incomplete reports whether err was caused by src ending early, as with
// an unclosed block or string.
func incomplete(src string, err error) bool {
	end := len(strings.TrimRight(src, " \t\r\n"))
	var parseErr *compiler.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Pos.Offset >= end
	}
	var lexErr *compiler.LexError
	if errors.As(err, &lexErr) {
		return strings.Contains(lexErr.Msg, "unterminated")
	}
	return false
}

func evalAndPrint(in *vm.Interpreter, src string, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	v, err := in.Eval(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if v != nil && v != vm.Null {
		fmt.Println(vm.Inspect(v))
	}
}

// replCommand runs a colon command and reports whether the REPL should
// exit.
func replCommand(in *vm.Interpreter, cmd string) bool {
	switch strings.Fields(cmd)[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":globals":
		for _, name := range in.REPLScope().LocalNames() {
			v, _ := in.REPLScope().Lookup(name)
			fmt.Printf("  %s : %s\n", name, vm.TypeName(v))
		}
	case ":modules":
		for _, name := range in.ModuleNames() {
			fmt.Printf("  %s\n", name)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (try :help)\n", cmd)
	}
	return false
}

// completeLine completes the identifier at the end of line against
// keywords and every name visible in the REPL scope.
func completeLine(in *vm.Interpreter, line string) []string {
	start := len(line)
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	prefix := line[start:]
	if prefix == "" {
		return nil
	}

	var out []string
	for _, lists := range [][]string{compiler.Keywords(), in.REPLScope().Names()} {
		for _, name := range lists {
			if strings.HasPrefix(name, prefix) {
				out = append(out, line[:start]+name)
			}
		}
	}
	return out
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
