// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// Target-platform constants. The compatibility date is pinned so repeated
// runs against the same checkout produce byte-identical config files.
const (
	adapterPackage       = "@opennextjs/cloudflare"
	wranglerPackage      = "wrangler"
	legacyAdapterPackage = "@cloudflare/next-on-pages"

	adapterConfigFile = "open-next.config.ts"
	deployConfigFile  = "wrangler.jsonc"
	manifestFile      = "package.json"
	ignoreFile        = ".gitignore"

	compatibilityDate = "2025-03-25"
	buildOutputDir    = ".open-next"
	workerEntry       = ".open-next/worker.js"
	assetsDir         = ".open-next/assets"
	assetsBinding     = "ASSETS"
	kvCacheBinding    = "NEXT_INC_CACHE_KV"
)

var compatibilityFlags = []string{"nodejs_compat"}

// PipelineConfig is the immutable input to one pipeline run.
type PipelineConfig struct {
	CheckoutPath string
	ProjectName  string
	// ManifestSubPath locates package.json relative to the checkout root
	// when the manifest is not at the root. Empty means root.
	ManifestSubPath  string
	EnableCache      bool
	CacheNamespaceID string
}

// manifestDir returns the directory containing package.json.
func (c PipelineConfig) manifestDir() string {
	if c.ManifestSubPath == "" {
		return c.CheckoutPath
	}
	return filepath.Join(c.CheckoutPath, c.ManifestSubPath)
}

func (c PipelineConfig) manifestPath() string {
	return filepath.Join(c.manifestDir(), manifestFile)
}

// CommandRunner executes an external command in a directory and returns its
// combined output. Injectable so pipeline tests do not need npm installed.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command with its working directory set to dir.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Pipeline converts a Next.js checkout to the Cloudflare Workers deployment
// layout in seven ordered steps. The first fatal step aborts the rest.
type Pipeline struct {
	runner CommandRunner
	// sink receives each log line as it is emitted, so a live status feed
	// sees progress before the run completes. May be nil.
	sink func(line string)
}

// NewPipeline creates a Pipeline using the given command runner. Passing a
// nil runner selects ExecRunner; sink may be nil when no live log consumer
// exists.
func NewPipeline(runner CommandRunner, sink func(line string)) *Pipeline {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Pipeline{runner: runner, sink: sink}
}

// pipelineStep is one ordered, independently failable mutation of the
// checkout. A returned error aborts all subsequent steps.
type pipelineStep struct {
	name string
	run  func(r *pipelineRun, ctx context.Context) error
}

var pipelineSteps = []pipelineStep{
	{"Verifying Next.js project", (*pipelineRun).verifyProject},
	{"Installing Cloudflare dependencies", (*pipelineRun).installDependencies},
	{"Writing " + adapterConfigFile, (*pipelineRun).writeAdapterConfig},
	{"Writing " + deployConfigFile, (*pipelineRun).writeDeployConfig},
	{"Updating package.json scripts", (*pipelineRun).updateManifestScripts},
	{"Removing conflicting references", (*pipelineRun).removeConflictingReferences},
	{"Updating " + ignoreFile, (*pipelineRun).updateIgnoreFile},
}

// Run executes all steps strictly in order. The returned result carries the
// full ordered log whether or not the run succeeded.
func (p *Pipeline) Run(ctx context.Context, cfg PipelineConfig) model.ConversionResult {
	r := &pipelineRun{p: p, cfg: cfg}

	for _, step := range pipelineSteps {
		r.logf("%s...", step.name)
		if err := step.run(r, ctx); err != nil {
			r.logf("%s failed: %v", step.name, err)
			return model.ConversionResult{
				Message: fmt.Sprintf("%s failed: %v", step.name, err),
				Logs:    r.logs,
			}
		}
	}

	r.logf("Conversion completed successfully")
	return model.ConversionResult{
		Success: true,
		Message: "Conversion completed successfully",
		Logs:    r.logs,
	}
}

// pipelineRun is the mutable state of one Run invocation.
type pipelineRun struct {
	p    *Pipeline
	cfg  PipelineConfig
	logs []string
}

func (r *pipelineRun) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	r.logs = append(r.logs, line)
	if r.p.sink != nil {
		r.p.sink(line)
	}
}

// verifyProject confirms package.json exists and declares next in either
// dependency group, then scans for edge-runtime exports. The scan is
// best-effort: only a missing manifest or missing framework dependency is
// fatal.
func (r *pipelineRun) verifyProject(_ context.Context) error {
	data, err := os.ReadFile(r.cfg.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no %s found at %s", manifestFile, r.cfg.manifestPath())
		}
		return fmt.Errorf("reading %s: %w", manifestFile, err)
	}

	hasNext := gjson.GetBytes(data, "dependencies.next").Exists() ||
		gjson.GetBytes(data, "devDependencies.next").Exists()
	if !hasNext {
		return fmt.Errorf("%s does not appear to be a Next.js project (no next dependency in dependencies or devDependencies)", r.cfg.ProjectName)
	}
	r.logf("Found Next.js dependency in %s", manifestFile)

	scan := ScanEdgeRuntime(r.cfg.CheckoutPath)
	switch scan.Outcome {
	case model.ScanMatched:
		r.logf("Warning: found %d file(s) with export const runtime = \"edge\"; the declaration will be removed", len(scan.Files))
	case model.ScanNoMatch:
		r.logf("No edge runtime usage detected")
	case model.ScanToolingError:
		// The scan is advisory only; step 6 retries the removal anyway.
		r.logf("Note: edge runtime scan did not complete: %v", scan.Err)
	}

	return nil
}

// installDependencies adds the Cloudflare adapter and deploy CLI as
// devDependencies in the manifest's directory.
func (r *pipelineRun) installDependencies(ctx context.Context) error {
	out, err := r.p.runner.Run(ctx, r.cfg.manifestDir(),
		"npm", "install", "--save-dev", adapterPackage+"@latest", wranglerPackage+"@latest")
	if err != nil {
		return fmt.Errorf("npm install failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	r.logf("Installed %s and %s as devDependencies", adapterPackage, wranglerPackage)
	return nil
}

const adapterConfigPlain = `import { defineCloudflareConfig } from "@opennextjs/cloudflare";

export default defineCloudflareConfig({});
`

const adapterConfigWithKV = `import { defineCloudflareConfig } from "@opennextjs/cloudflare";
import kvIncrementalCache from "@opennextjs/cloudflare/overrides/incremental-cache/kv-incremental-cache";

export default defineCloudflareConfig({
  incrementalCache: kvIncrementalCache,
});
`

// writeAdapterConfig writes open-next.config.ts next to the manifest. The
// content depends only on the cache flag, so rewrites are byte-identical
// for identical configs.
func (r *pipelineRun) writeAdapterConfig(_ context.Context) error {
	content := adapterConfigPlain
	if r.cfg.EnableCache {
		content = adapterConfigWithKV
	}

	path := filepath.Join(r.cfg.manifestDir(), adapterConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", adapterConfigFile, err)
	}
	r.logf("Wrote %s (KV cache: %t)", adapterConfigFile, r.cfg.EnableCache)
	return nil
}

// wranglerConfig is the generated deploy-tool configuration document. Field
// order here is the serialization order.
type wranglerConfig struct {
	Schema             string                `json:"$schema"`
	Main               string                `json:"main"`
	Name               string                `json:"name"`
	CompatibilityDate  string                `json:"compatibility_date"`
	CompatibilityFlags []string              `json:"compatibility_flags"`
	Assets             wranglerAssets        `json:"assets"`
	KVNamespaces       []wranglerKVNamespace `json:"kv_namespaces"`
}

type wranglerAssets struct {
	Directory string `json:"directory"`
	Binding   string `json:"binding"`
}

type wranglerKVNamespace struct {
	Binding string `json:"binding"`
	ID      string `json:"id"`
}

// writeDeployConfig writes wrangler.jsonc next to the manifest,
// unconditionally overwriting any existing file.
func (r *pipelineRun) writeDeployConfig(_ context.Context) error {
	cfg := wranglerConfig{
		Schema:             "node_modules/wrangler/config-schema.json",
		Main:               workerEntry,
		Name:               r.cfg.ProjectName,
		CompatibilityDate:  compatibilityDate,
		CompatibilityFlags: compatibilityFlags,
		Assets: wranglerAssets{
			Directory: assetsDir,
			Binding:   assetsBinding,
		},
		KVNamespaces: []wranglerKVNamespace{},
	}
	if r.cfg.EnableCache && r.cfg.CacheNamespaceID != "" {
		cfg.KVNamespaces = []wranglerKVNamespace{
			{Binding: kvCacheBinding, ID: r.cfg.CacheNamespaceID},
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", deployConfigFile, err)
	}
	data = append(data, '\n')

	path := filepath.Join(r.cfg.manifestDir(), deployConfigFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", deployConfigFile, err)
	}
	r.logf("Wrote %s for project %q", deployConfigFile, r.cfg.ProjectName)
	return nil
}

// manifestScripts are the fixed script entries the conversion installs.
// Keys are set individually so unrelated scripts keep their position.
var manifestScripts = []struct {
	key, command string
}{
	{"preview", "opennextjs-cloudflare build && opennextjs-cloudflare preview"},
	{"deploy", "opennextjs-cloudflare build && opennextjs-cloudflare deploy"},
	{"cf-typegen", "wrangler types --env-interface CloudflareEnv cloudflare-env.d.ts"},
}

// updateManifestScripts sets the preview, deploy, and cf-typegen script
// entries, creating the scripts section if absent. sjson edits in place so
// existing indentation and key order survive.
func (r *pipelineRun) updateManifestScripts(_ context.Context) error {
	path := r.cfg.manifestPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestFile, err)
	}

	if !gjson.GetBytes(data, "scripts").Exists() {
		data, err = sjson.SetBytes(data, "scripts", map[string]string{})
		if err != nil {
			return fmt.Errorf("creating scripts section: %w", err)
		}
	}

	for _, s := range manifestScripts {
		data, err = sjson.SetBytes(data, "scripts."+s.key, s.command)
		if err != nil {
			return fmt.Errorf("setting scripts.%s: %w", s.key, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", manifestFile, err)
	}
	r.logf("Updated %s scripts (preview, deploy, cf-typegen)", manifestFile)
	return nil
}

// removeConflictingReferences drops the legacy Pages adapter from both
// dependency groups and rewrites edge-runtime export lines in place. The
// source rewrite is best-effort and never aborts the run.
func (r *pipelineRun) removeConflictingReferences(_ context.Context) error {
	path := r.cfg.manifestPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestFile, err)
	}

	changed := false
	for _, group := range []string{"dependencies", "devDependencies"} {
		key := group + "." + legacyAdapterPackage
		if !gjson.GetBytes(data, key).Exists() {
			continue
		}
		data, err = sjson.DeleteBytes(data, key)
		if err != nil {
			return fmt.Errorf("removing %s from %s: %w", legacyAdapterPackage, group, err)
		}
		changed = true
		r.logf("Removed %s from %s", legacyAdapterPackage, group)
	}
	if changed {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", manifestFile, err)
		}
	}

	rewritten, err := RemoveEdgeRuntime(r.cfg.CheckoutPath)
	if err != nil {
		r.logf("Note: could not rewrite edge runtime exports automatically (%v); remove them manually before deploying", err)
		return nil
	}
	if rewritten > 0 {
		r.logf("Replaced edge runtime export in %d file(s)", rewritten)
	}
	return nil
}

// updateIgnoreFile appends the build output directory to the checkout's
// ignore file. A sub-path-local ignore file is used only when the root one
// does not exist; a missing file is created at the root.
func (r *pipelineRun) updateIgnoreFile(_ context.Context) error {
	path := filepath.Join(r.cfg.CheckoutPath, ignoreFile)
	if _, err := os.Stat(path); os.IsNotExist(err) && r.cfg.ManifestSubPath != "" {
		if local := filepath.Join(r.cfg.manifestDir(), ignoreFile); fileExists(local) {
			path = local
		}
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", ignoreFile, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == buildOutputDir {
			r.logf("%s already ignores %s", ignoreFile, buildOutputDir)
			return nil
		}
	}

	entry := buildOutputDir + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if err := os.WriteFile(path, append(data, entry...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ignoreFile, err)
	}
	r.logf("Added %s to %s", buildOutputDir, ignoreFile)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
