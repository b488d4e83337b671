// Command flowc compiles a flow definition tree into a manifest: load the
// root locator (spec component B), flatten it (C), collapse boundary
// connections (D), remove dead functions (E), index and check (F/G), and
// emit the manifest (H). With --dump it also prints the intermediate stage
// tables and their JSON merge-patch diffs instead of writing a manifest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"net/http"

	"github.com/flowforge/flowcore/common/clients"
	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/compiler"
	"github.com/flowforge/flowcore/internal/compiler/dump"
	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/loader"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
)

func main() {
	var (
		root       = flag.String("root", "", "root flow/function locator to compile")
		out        = flag.String("out", "", "path to write the compiled manifest (defaults alongside root)")
		dumpStages = flag.Bool("dump", false, "print the gather/collapse/optimize/emit stage tables and their diffs instead of writing a manifest")
		name       = flag.String("name", "", "manifest metadata name (defaults to the root locator's base name)")
		version    = flag.String("version", "0.1.0", "manifest metadata version")
		libDir     = flag.String("libdir", "", "directory of lib:// function/flow definitions beyond the root's own directory")
	)
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "flowc: -root is required")
		os.Exit(2)
	}

	if err := run(*root, *out, *name, *version, *libDir, *dumpStages); err != nil {
		fmt.Fprintf(os.Stderr, "flowc: %v\n", err)
		if fe, ok := asFlowErr(err); ok {
			os.Exit(exitCodeFor(fe.Kind))
		}
		os.Exit(1)
	}
}

func run(rootLocator, out, name, version, libDir string, dumpStages bool) error {
	baseDir := filepath.Dir(rootLocator)
	locator := filepath.Base(rootLocator)

	log := logger.New("info", "text")
	httpClient := clients.NewHTTPClient(&http.Client{}, log)

	providers := loader.NewProviderRegistry()
	providers.Register("file", loader.NewFileProvider(baseDir))
	providers.Register("http", &loader.HTTPProvider{Get: httpGet(httpClient)})
	providers.Register("https", &loader.HTTPProvider{Get: httpGet(httpClient)})
	if libDir != "" {
		providers.Register("lib", resolver.NewLibraryFileContentProvider(libDir))
	}
	deserializers := loader.NewDeserializerRegistry()

	ld := loader.New(providers, deserializers)

	ctx := context.Background()
	flow, fn, err := ld.LoadRoot(ctx, locator)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rootLocator, err)
	}

	if fn != nil {
		// A bare function at the root has nothing to flatten or collapse:
		// wrap it as a single-process flow so the rest of the pipeline is
		// uniform.
		flow = &model.Flow{
			Name:      fn.Name,
			Route:     "",
			Process:   []model.ProcessRef{{Alias: fn.Alias, Source: rootLocator}},
			Functions: map[string]*model.Function{fn.Alias: fn},
			Subflows:  map[string]*model.Flow{},
		}
	}

	if name == "" {
		name = baseName(rootLocator)
	}
	meta := model.Metadata{Name: name, Version: version}

	result := compiler.Compile(meta, flow)

	if dumpStages {
		return printDump(result)
	}

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "flowc: check error: %v\n", e)
		}
		return fmt.Errorf("compilation failed with %d error(s)", len(result.Errors))
	}

	if out == "" {
		out = trimExt(rootLocator) + ".manifest.json"
	}

	data, err := json.MarshalIndent(result.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest to %s: %w", out, err)
	}

	fmt.Printf("flowc: wrote %s (%d functions)\n", out, len(result.Manifest.Functions))
	return nil
}

func printDump(r *compiler.Result) error {
	stages := []dump.Stage{
		{Name: "gathered", Functions: r.Gathered.Functions, Connections: r.Gathered.Connections},
		{Name: "collapsed", Functions: r.Gathered.Functions, Connections: r.Collapsed},
		{Name: "optimized", Functions: r.Optimized.Functions, Connections: r.Optimized.Connections},
	}
	if r.Manifest != nil {
		stages = append(stages, dump.Stage{Name: "manifest", Manifest: r.Manifest})
	}

	d, err := dump.Build(stages...)
	if err != nil {
		return fmt.Errorf("building dump: %w", err)
	}
	out, err := d.JSON()
	if err != nil {
		return fmt.Errorf("marshaling dump: %w", err)
	}
	fmt.Println(string(out))

	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			fmt.Fprintf(os.Stderr, "flowc: check error: %v\n", e)
		}
		return fmt.Errorf("compilation failed with %d error(s)", len(r.Errors))
	}
	return nil
}

// httpGet adapts clients.HTTPClient to the loader.HTTPProvider.Get shape,
// reading the full response body for a GET on url.
func httpGet(c *clients.HTTPClient) func(ctx context.Context, url string) ([]byte, error) {
	return func(ctx context.Context, url string) ([]byte, error) {
		resp, err := c.DoRequest(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

func baseName(locator string) string {
	base := path.Base(locator)
	return trimExt(base)
}

func trimExt(p string) string {
	ext := filepath.Ext(p)
	return p[:len(p)-len(ext)]
}

func asFlowErr(err error) (*flowerr.Error, bool) {
	fe, ok := err.(*flowerr.Error)
	if ok {
		return fe, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return asFlowErr(u.Unwrap())
	}
	return nil, false
}

func exitCodeFor(k flowerr.Kind) int {
	switch k {
	case flowerr.NotFound:
		return 3
	case flowerr.Parse:
		return 4
	case flowerr.Validation, flowerr.TypeMismatch, flowerr.CompetingInput, flowerr.UnusedInput:
		return 5
	case flowerr.Cycle:
		return 6
	default:
		return 1
	}
}
