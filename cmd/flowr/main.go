// Command flowr runs a compiled manifest (spec components I through M): it
// resolves every function's implementation against the stdlib and any
// additional library directory, then either drives a single submission
// locally against this process's own stdio/filesystem (the "run"
// subcommand), or hosts the submission HTTP/websocket API (the "serve"
// subcommand) for an external client to submit against over time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowforge/flowcore/common/bootstrap"
	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/common/metrics"
	redisWrapper "github.com/flowforge/flowcore/common/redis"
	"github.com/flowforge/flowcore/common/server"
	"github.com/flowforge/flowcore/internal/contextfns"
	"github.com/flowforge/flowcore/internal/loader"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
	"github.com/flowforge/flowcore/internal/submission"
	"github.com/flowforge/flowcore/stdlib"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flowr run -manifest <path> [-concurrency N] [-timeout DURATION] [-debug EXPR] [-libdir DIR]")
	fmt.Fprintln(os.Stderr, "       flowr serve [-libdir DIR]")
}

// runCmd drives one submission to completion against this process's own
// stdio/filesystem, with no separate client process and no audit trail —
// the direct equivalent of the original flow project's `flowr` invoked on a
// single manifest from the command line.
func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to a compiled manifest produced by flowc")
	concurrency := fs.Int("concurrency", 4, "maximum number of jobs in flight at once")
	timeout := fs.Duration("timeout", 30*time.Second, "per-job timeout")
	debugExpr := fs.String("debug", "", "CEL breakpoint expression evaluated between dispatch rounds")
	libDir := fs.String("libdir", "", "directory of lib:// library manifests beyond the built-in stdlib")
	fs.Parse(args)

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "flowr run: -manifest is required")
		os.Exit(2)
	}

	log := logger.New("info", "text")

	manifest, err := loadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowr: %v\n", err)
		os.Exit(1)
	}

	libs := buildLibraryProvider(*libDir, nil, log)
	channel := newLocalChannel()
	ctxFns := resolver.ContextFuncs(contextfns.Registry(channel, log))

	ctx := context.Background()
	bound, err := resolver.Resolve(ctx, manifest, libs, ctxFns, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowr: resolving implementations: %v\n", err)
		os.Exit(1)
	}

	coord := submission.New(submission.Request{
		ManifestLocator: *manifestPath,
		Manifest:        manifest,
		Concurrency:     *concurrency,
		JobTimeout:      *timeout,
		Debug:           *debugExpr != "",
		DebuggerExpr:    *debugExpr,
		Channel:         channel,
	}, bound, log, nil)

	if err := coord.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flowr: run failed: %v\n", err)
		os.Exit(1)
	}
}

// serveCmd hosts the submission HTTP/websocket API (spec.md §4.M) for
// external clients to submit manifests against over time, recording every
// submission and terminal event to the audit database when one is
// configured.
func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	libDir := fs.String("libdir", "", "directory of lib:// library manifests beyond the built-in stdlib")
	fs.Parse(args)

	ctx := context.Background()
	comps, err := bootstrap.Setup(ctx, "flowr")
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowr: bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer comps.Shutdown(ctx)
	comps.Logger.Info("host info", "system", metrics.GetSystemInfo().ToMap())

	var audit *submission.AuditRepository
	if comps.DB != nil {
		if _, err := comps.DB.Exec(ctx, submission.Schema); err != nil {
			comps.Logger.Error("failed to apply audit schema", "error", err)
		} else {
			audit = submission.NewAuditRepository(comps.DB, comps.Logger)
		}
	}

	var content loader.ContentProvider = loader.NewFileProvider(".")
	if comps.ContentCache != nil {
		// Many submissions against this long-running process often name
		// the same manifest locator; cache its bytes in Redis rather than
		// rereading the file (or refetching over http) every submit.
		content = loader.NewCachingContentProvider(content, comps.ContentCache, comps.Config.Cache.DefaultTTL)
	}
	libs := buildLibraryProvider(*libDir, comps.Redis, comps.Logger)
	// The per-submission resolve needs some binding for every context://
	// locator a manifest references; serve binds them all to a
	// pendingChannel, whose round trips fail with an error. A websocket a
	// client opens at /submissions/:id/ws is not connected to these
	// bindings (submission.wireContextFuncs runs only for a Request that
	// carries a Channel, and the HTTP submit handler sets none), so a
	// context function that fires in a served submission returns that error.
	ctxFns := resolver.ContextFuncs(contextfns.Registry(pendingChannel{}, comps.Logger))

	srv := submission.NewServer(content, libs, ctxFns, audit, comps.Logger, comps.RateLimiter)
	httpServer := server.New("flowr", comps.Config.Service.Port, srv.Echo, comps.Logger)
	if err := httpServer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "flowr: server error: %v\n", err)
		os.Exit(1)
	}
}

func buildLibraryProvider(libDir string, redisClient *goredis.Client, log *logger.Logger) resolver.Provider {
	natives := stdlib.Natives()
	root := "."
	if libDir != "" {
		root = libDir
	}
	content := resolver.NewLibraryFileContentProvider(root)

	var cache *redisWrapper.Client
	if redisClient != nil {
		cache = redisWrapper.NewClient(redisClient, log)
	}
	return resolver.NewCachedLibraryProvider(content, cache, natives, time.Hour)
}

func loadManifest(path string) (*model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
