// Package loader provides functionality for loading Beancount files with support for
// include directives. It can recursively resolve and merge multiple files into a
// single AST, handling relative paths and deduplication.
//
// The loader supports two modes of operation:
//   - Simple mode: Parses a single file with include directives preserved in the AST
//   - Follow mode: Recursively loads all included files and merges them into one AST
//
// When following includes, the loader resolves relative paths from the directory of
// the file containing the include directive, and deduplicates files that are included
// multiple times.
//
// Example usage:
//
//	// Load a single file without following includes
//	loader := loader.New()
//	ast, err := loader.Load(ctx, "main.beancount")
//
//	// Load with recursive include resolution
//	loader := loader.New(loader.WithFollowIncludes())
//	ast, err := loader.Load(ctx, "main.beancount")
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mfriedlander/ledgerd/ast"
	"github.com/mfriedlander/ledgerd/parser"
	"github.com/mfriedlander/ledgerd/telemetry"
	"golang.org/x/sync/errgroup"
)

// operatingCurrencyOption is the one option name beancount allows to repeat
// across a file and its includes; every other option is first-file-wins.
const operatingCurrencyOption = "operating_currency"

// Loader handles loading and parsing of Beancount files with optional include resolution.
// It provides configurable behavior for handling include directives, supporting both simple
// single-file parsing and recursive loading with file merging.
//
// Configure the loader using functional options passed to New:
//
//	loader := New(WithFollowIncludes())
type Loader struct {
	// FollowIncludes determines whether to recursively load included files.
	// When false, only the specified file is parsed and ast.Includes is preserved.
	// When true, all included files are recursively loaded and merged into a single AST.
	FollowIncludes bool

	hashMu        sync.Mutex
	lastInputHash string
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all included files.
// When enabled:
//   - All include directives are recursively resolved and loaded
//   - Relative paths are resolved from the directory of the including file
//   - All directives, options, and plugins are merged into a single AST
//   - The returned AST has ast.Includes set to nil (all includes resolved)
//
// When disabled (default):
//   - Only the specified file is parsed
//   - Include directives remain in ast.Includes
//   - No path resolution or validation occurs
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// InputHash returns the hex-encoded sha256 digest computed over every file
// read by the most recent FollowIncludes load (absolute path + content
// digest of each, order-independent). Empty until a load has completed.
func (l *Loader) InputHash() string {
	l.hashMu.Lock()
	defer l.hashMu.Unlock()
	return l.lastInputHash
}

func (l *Loader) setInputHash(hash string) {
	l.hashMu.Lock()
	l.lastInputHash = hash
	l.hashMu.Unlock()
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{
		FollowIncludes: false, // Default: don't follow includes
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load parses a beancount file with optional recursive include resolution.
func (l *Loader) Load(ctx context.Context, filename string) (*ast.AST, error) {
	if !l.FollowIncludes {
		// Simple case: just parse the single file
		parseTimer := telemetry.StartTimer(ctx, fmt.Sprintf("loader.parse %s", filepath.Base(filename)))
		defer parseTimer.End()
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		result, err := parser.ParseBytesWithFilename(ctx, filename, data)
		if err != nil {
			// Wrap parser errors for consistent formatting
			return nil, parser.NewParseError(filename, err)
		}
		return result, nil
	}

	// Recursive loading with include resolution
	loadTimer := telemetry.StartTimer(ctx, fmt.Sprintf("loader.load %s", filepath.Base(filename)))
	defer loadTimer.End()
	state := &loaderState{
		visited: make(map[string]bool),
		digests: make(map[string]string),
	}

	result, err := state.loadRecursive(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	l.setInputHash(state.inputHash())
	return result, nil
}

// LoadBytes parses beancount content from a byte slice with optional recursive include resolution.
// The filename parameter is used for error reporting and as the base path for resolving includes.
// When FollowIncludes is enabled, relative include paths are resolved from the directory of filename;
// data whose filename is "<stdin>" and that contains include directives is rejected with an error.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	if !l.FollowIncludes {
		// Simple case: just parse the provided data
		parseTimer := telemetry.StartTimer(ctx, fmt.Sprintf("loader.parse %s", filepath.Base(filename)))
		defer parseTimer.End()
		result, err := parser.ParseBytesWithFilename(ctx, filename, data)
		if err != nil {
			// Wrap parser errors for consistent formatting
			return nil, parser.NewParseError(filename, err)
		}
		return result, nil
	}

	// For recursive loading, parse the initial data then follow includes from disk
	parseTimer := telemetry.StartTimer(ctx, fmt.Sprintf("loader.parse %s", filepath.Base(filename)))
	result, err := parser.ParseBytesWithFilename(ctx, filename, data)
	parseTimer.End()
	if err != nil {
		return nil, parser.NewParseError(filename, err)
	}

	// If no includes, return as-is
	if len(result.Includes) == 0 {
		return result, nil
	}

	// Data read from stdin has no containing file to resolve includes against
	if filename == "<stdin>" {
		return nil, fmt.Errorf("include directives are not supported when reading from stdin")
	}

	// Recursively load all includes from disk
	loadTimer := telemetry.StartTimer(ctx, fmt.Sprintf("loader.load includes for %s", filepath.Base(filename)))
	defer loadTimer.End()
	state := &loaderState{
		visited: make(map[string]bool),
		digests: make(map[string]string),
	}

	// Get absolute path for include resolution
	// Special handling for STDIN ("-"): use current working directory as base
	var absPath, baseDir string
	if filename == "-" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory for STDIN: %w", err)
		}
		absPath = filepath.Join(baseDir, "-") // Use a pseudo-path for visited tracking
	} else {
		var err error
		absPath, err = filepath.Abs(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
		}
		baseDir = filepath.Dir(absPath)
	}
	state.visited[absPath] = true // Mark the main file as visited
	sum := sha256.Sum256(data)
	state.digests[absPath] = hex.EncodeToString(sum[:])
	var includedASTs []*ast.AST

	for _, inc := range result.Includes {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Resolve path relative to the main file's directory
		includePath := inc.Filename.Value
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}

		// Recursively load the included file from disk
		includedAST, err := state.loadRecursive(ctx, includePath, nil)
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}

		includedASTs = append(includedASTs, includedAST)
	}

	// Merge all ASTs
	mergeTimer := loadTimer.Child("ast.merging")
	merged := mergeASTs(result, includedASTs...)
	mergeTimer.End()
	l.setInputHash(state.inputHash())
	return merged, nil
}

// loaderState tracks state during recursive loading.
type loaderState struct {
	visited map[string]bool   // Absolute paths of files already loaded
	digests map[string]string // Absolute path -> hex sha256 of its contents
	mu      sync.Mutex        // Protects visited/digests during concurrent loading
}

// inputHash returns a hex-encoded sha256 digest over every file this state
// visited: the absolute path and content digest of each, sorted by path so
// concurrent include order never affects the result. Two loads of the same
// tree (same filenames, same bytes) always produce the same hash.
func (s *loaderState) inputHash() string {
	s.mu.Lock()
	paths := make([]string, 0, len(s.digests))
	digests := make(map[string]string, len(s.digests))
	for k, v := range s.digests {
		paths = append(paths, k)
		digests[k] = v
	}
	s.mu.Unlock()

	sort.Strings(paths)
	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(digests[p]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// loadRecursive recursively loads a file and all its includes.
// If timer is nil, a new timer will be created; otherwise the provided timer is used.
func (l *loaderState) loadRecursive(ctx context.Context, filename string, timer telemetry.Timer) (*ast.AST, error) {
	// Get absolute path for deduplication
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	// Read and parse the file
	// Use provided timer or create a new one
	var parseTimer telemetry.Timer
	if timer != nil {
		parseTimer = timer
	} else {
		parseTimer = telemetry.StartTimer(ctx, fmt.Sprintf("loader.parse %s", filepath.Base(filename)))
	}
	defer parseTimer.End()

	// Check if already visited (deduplication - same file included multiple times)
	// Lock to safely check and update the visited map during concurrent loading
	l.mu.Lock()
	if l.visited[absPath] {
		l.mu.Unlock()
		// Return empty AST - this file was already processed
		return &ast.AST{}, nil
	}
	l.visited[absPath] = true

	// Read file while holding lock to prevent TOCTOU race condition
	// This ensures atomic check-mark-read operation during concurrent loading
	// File I/O is relatively fast compared to parsing, which happens outside the lock
	data, err := os.ReadFile(filename)
	if err != nil {
		// Clean up visited map on read failure to allow retry
		delete(l.visited, absPath)
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	sum := sha256.Sum256(data)
	l.digests[absPath] = hex.EncodeToString(sum[:])
	l.mu.Unlock()

	result, err := parser.ParseBytesWithFilename(ctx, filename, data)
	if err != nil {
		// Wrap parser errors for consistent formatting
		return nil, parser.NewParseError(filename, err)
	}

	// If no includes, return as-is
	if len(result.Includes) == 0 {
		result.Includes = nil // Clear includes since we're in follow mode
		return result, nil
	}

	// Recursively load all includes and merge
	baseDir := filepath.Dir(absPath)

	// Pre-allocate slice to preserve include order
	includedASTs := make([]*ast.AST, len(result.Includes))

	// Create child timers for all includes before spawning goroutines
	// This ensures they appear as siblings in the telemetry tree
	includeTimers := make([]telemetry.Timer, len(result.Includes))
	for i, inc := range result.Includes {
		includeTimers[i] = parseTimer.Child(fmt.Sprintf("loader.parse %s", filepath.Base(inc.Filename.Value)))
	}

	// Use errgroup to load includes concurrently
	g, gctx := errgroup.WithContext(ctx)

	for i, inc := range result.Includes {
		// Capture loop variables for goroutine
		i := i
		inc := inc
		childTimer := includeTimers[i]

		g.Go(func() error {
			// Resolve path relative to the including file's directory
			includePath := inc.Filename.Value
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(baseDir, includePath)
			}

			// Set the parent timer in context so parser creates nested timers
			childCtx := telemetry.WithParentTimer(gctx, childTimer)

			// Recursively load the included file with the pre-created timer
			includedAST, err := l.loadRecursive(childCtx, includePath, childTimer)
			if err != nil {
				return fmt.Errorf("in file %s: %w", filename, err)
			}

			includedASTs[i] = includedAST
			return nil
		})
	}

	// Wait for all includes to be loaded
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge all ASTs
	mergeTimer := parseTimer.Child("ast.merging")
	merged := mergeASTs(result, includedASTs...)
	mergeTimer.End()
	return merged, nil
}

// mergeASTs combines a main AST with multiple included ASTs.
// The main AST's options take precedence over included files' options,
// except operating_currency which set-unions across every file. Plugins
// set-union by name across every file, first occurrence wins.
// All directives are combined and re-sorted by date and directive rank.
func mergeASTs(main *ast.AST, included ...*ast.AST) *ast.AST {
	result := &ast.AST{
		Directives: make(ast.Directives, 0, len(main.Directives)),
		Includes:   nil, // All includes resolved, so clear this
		Pushtags:   main.Pushtags,
		Poptags:    main.Poptags,
		Pushmetas:  main.Pushmetas,
		Popmetas:   main.Popmetas,
	}

	allOptionSets := make([][]*ast.Option, 0, len(included)+1)
	allOptionSets = append(allOptionSets, main.Options)
	for _, inc := range included {
		allOptionSets = append(allOptionSets, inc.Options)
	}
	result.Options = mergeOptions(allOptionSets)

	allPluginSets := make([][]*ast.Plugin, 0, len(included)+1)
	allPluginSets = append(allPluginSets, main.Plugins)
	for _, inc := range included {
		allPluginSets = append(allPluginSets, inc.Plugins)
	}
	result.Plugins = mergePlugins(allPluginSets)

	// Add main file directives
	result.Directives = append(result.Directives, main.Directives...)

	// Add directives from all included files
	for _, inc := range included {
		result.Directives = append(result.Directives, inc.Directives...)

		// Note: Pushtag/Poptag/Pushmeta/Popmeta are already applied during parsing,
		// so we don't need to merge them here (they've already modified their
		// respective file's directives)
	}

	// Re-sort all directives by date
	_ = ast.SortDirectives(result)

	return result
}

// mergeOptions merges option sets in file-processing order. Every option
// name is first-file-wins, except operating_currency, which beancount
// allows to repeat per file and which set-unions across every file,
// preserving the order each currency was first declared in.
func mergeOptions(sets [][]*ast.Option) []*ast.Option {
	var merged []*ast.Option
	seenName := make(map[string]bool)
	seenCurrency := make(map[string]bool)

	for _, opts := range sets {
		for _, opt := range opts {
			if opt.Name.Value == operatingCurrencyOption {
				if seenCurrency[opt.Value.Value] {
					continue
				}
				seenCurrency[opt.Value.Value] = true
				merged = append(merged, opt)
				continue
			}
			if seenName[opt.Name.Value] {
				continue
			}
			seenName[opt.Name.Value] = true
			merged = append(merged, opt)
		}
	}
	return merged
}

// mergePlugins set-unions plugin declarations by name across every file,
// preserving first-occurrence order. A plugin loaded (with its config) by
// an earlier file in the set is not reloaded by a later one that names it
// again without config; a later occurrence that supplies config a prior
// declaration lacked is kept as-is too (plugins aren't actually executed,
// see DESIGN.md).
func mergePlugins(sets [][]*ast.Plugin) []*ast.Plugin {
	var merged []*ast.Plugin
	seen := make(map[string]bool)

	for _, plugins := range sets {
		for _, p := range plugins {
			if seen[p.Name.Value] {
				continue
			}
			seen[p.Name.Value] = true
			merged = append(merged, p)
		}
	}
	return merged
}
