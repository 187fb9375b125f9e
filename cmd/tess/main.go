// tess runs tessera programs, serves the evaluation API and the language
// server, and provides an interactive REPL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/tessera/manifest"
	"github.com/chazu/tessera/server"
	"github.com/chazu/tessera/vm"
	"github.com/chazu/tessera/vm/wire"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("tessera.cli")

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (0 = warnings only, 2 = debug)")
	interactive := flag.Bool("i", false, "Start interactive REPL after running")
	listModules := flag.Bool("m", false, "List the modules visible to the project and exit")
	snapshotPath := flag.String("snapshot", "", "Write the main module's exported data as CBOR to this file")
	serveMode := flag.Bool("serve", false, "Start the evaluation server (Connect HTTP/JSON + gRPC over h2c)")
	servePort := flag.Int("port", 4567, "Evaluation server port (used with --serve)")
	grpcPort := flag.Int("grpc-port", 0, "Also serve plain gRPC on this port (used with --serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tess [options] [file.tess | module]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a tessera program. Without arguments, runs the entry module named in\n")
		fmt.Fprintf(os.Stderr, "%s, or starts the REPL when there is none.\n\n", manifest.FileName)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tess hello.tess                 # Run a file\n")
		fmt.Fprintf(os.Stderr, "  tess shapes.grid                # Run a module of the current project\n")
		fmt.Fprintf(os.Stderr, "  tess -i                         # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  tess --serve --port 8080        # Evaluation server on :8080\n")
		fmt.Fprintf(os.Stderr, "  tess --lsp                      # Language server for editors\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}
	target := flag.Arg(0)

	proj, err := openProject(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *listModules:
		names, err := proj.loader.ModuleNames()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return

	case *lspMode:
		if err := server.NewLSP(proj.loader).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			os.Exit(1)
		}
		return

	case *serveMode:
		if err := serve(proj, *servePort, *grpcPort); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	in := proj.newInterpreter()

	m, err := proj.mainModule(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		runREPL(in, proj.timeout)
		return
	}

	ctx, cancel := proj.context()
	_, err = in.Run(ctx, m)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}

	if *snapshotPath != "" {
		if err := writeSnapshot(m, *snapshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *interactive {
		runREPL(in, proj.timeout)
	}
}

// project is the resolved setting a command runs in: a manifest project
// when one is found, otherwise the directory of the target file.
type project struct {
	manifest *manifest.Manifest
	loader   *manifest.Loader
	options  []vm.Option
	timeout  time.Duration
}

// openProject looks for a manifest starting at the target's directory, or
// the working directory when target is not a file.
func openProject(target string) (*project, error) {
	start := "."
	if isSourceFile(target) {
		start = filepath.Dir(target)
	}

	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return nil, err
	}
	if m == nil {
		log.Debugf("no %s found, resolving imports from %s", manifest.FileName, start)
		return &project{loader: manifest.NewDirLoader(start)}, nil
	}

	loader, err := manifest.NewLoader(m)
	if err != nil {
		return nil, err
	}
	timeout, err := m.Runtime.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	log.Infof("project %s (%s)", m.Project.Name, m.Dir)
	return &project{
		manifest: m,
		loader:   loader,
		options:  m.Runtime.Options(),
		timeout:  timeout,
	}, nil
}

func (p *project) newInterpreter() *vm.Interpreter {
	opts := append([]vm.Option{vm.WithResolver(p.loader)}, p.options...)
	in := vm.NewInterpreter(opts...)
	vm.RegisterHostFuncs(in, os.Stdout)
	return in
}

// context returns the context for one run, bounded by the project timeout.
func (p *project) context() (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(context.Background(), p.timeout)
	}
	return context.WithCancel(context.Background())
}

// mainModule returns the module to run: the target file, the target
// module name, or the manifest entry. It returns nil when there is
// nothing to run.
func (p *project) mainModule(target string) (*vm.Module, error) {
	switch {
	case isSourceFile(target):
		src, err := os.ReadFile(target)
		if err != nil {
			return nil, err
		}
		return vm.ParseModule(moduleNameFor(target), target, string(src))
	case target != "":
		return p.loader.Resolve(target)
	case p.manifest != nil && p.manifest.Source.Entry != "":
		return p.loader.Resolve(p.manifest.Source.Entry)
	}
	return nil, nil
}

func isSourceFile(target string) bool {
	return strings.HasSuffix(target, manifest.Extension)
}

// moduleNameFor derives a module name from a file path.
func moduleNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), manifest.Extension)
	if manifest.ValidModuleName(base) {
		return base
	}
	return manifest.ToIdentifier(base)
}

func serve(p *project, port, grpcPort int) error {
	srv := server.New(
		server.WithResolver(p.loader),
		server.WithInterpreterOptions(p.options...),
		server.WithTimeout(p.timeout),
	)
	defer srv.Stop()

	if grpcPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", grpcPort))
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ServeGRPC(lis); err != nil {
				log.Errorf("gRPC server: %s", err)
			}
		}()
	}
	return srv.ListenAndServe(fmt.Sprintf(":%d", port))
}

// writeSnapshot encodes the exported data of m to path.
func writeSnapshot(m *vm.Module, path string) error {
	snap := wire.TakeSnapshot(m)
	data, err := wire.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if len(snap.Skipped) > 0 {
		log.Noticef("snapshot skipped non-data exports: %s", strings.Join(snap.Skipped, ", "))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// exitCode maps a run error to a process exit status.
func exitCode(err error) int {
	var ee *vm.EvalError
	if errors.As(err, &ee) && ee.Kind == vm.ErrCanceled {
		return 124
	}
	return 1
}
