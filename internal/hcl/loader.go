package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/vk/arterialgo/internal/fsutil"
)

// File names looked up in the data directory, in order of preference.
var (
	SettingsFiles = []string{"settings.hcl", "settings.json"}
	SegmentsFiles = []string{"segments.hcl", "segments.json", "model_params.json"}
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load locates, parses and translates the settings and segment files, then
// validates the resulting model.
func (l *Loader) Load(ctx context.Context, src config.Source) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "dir", src.Dir)

	settingsPath, err := resolve(src.Dir, src.SettingsFile, SettingsFiles)
	if err != nil {
		return nil, err
	}
	segmentsPath, err := resolve(src.Dir, src.SegmentsFile, SegmentsFiles)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved configuration files.", "settings", settingsPath, "segments", segmentsPath)

	parser := hclparse.NewParser()

	settings, err := l.loadSettings(parser, settingsPath)
	if err != nil {
		return nil, err
	}
	segments, err := l.loadSegments(ctx, parser, segmentsPath)
	if err != nil {
		return nil, err
	}

	model := &config.Model{Settings: settings, Segments: segments}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "segments", len(model.Segments))
	return model, nil
}

func (l *Loader) loadSettings(parser *hclparse.Parser, path string) (config.Settings, error) {
	file, err := parseFile(parser, path)
	if err != nil {
		return config.Settings{}, err
	}
	var root settingsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return config.Settings{}, fmt.Errorf("failed to decode settings file %s: %w", path, diags)
	}
	return translateSettings(&root), nil
}

func (l *Loader) loadSegments(ctx context.Context, parser *hclparse.Parser, path string) ([]*config.SegmentSpec, error) {
	file, err := parseFile(parser, path)
	if err != nil {
		return nil, err
	}
	var root segmentsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode segments file %s: %w", path, diags)
	}

	var specs []*config.SegmentSpec
	if isExprDefined(ctx, root.Rows, "segments") {
		rows, diags := root.Rows.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate segments in %s: %w", path, diags)
		}
		specs, err = translateRows(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, b := range root.Blocks {
		spec, err := translateBlock(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// resolve returns the explicit file when given, otherwise the first candidate
// present in dir.
func resolve(dir, explicit string, candidates []string) (string, error) {
	if explicit != "" {
		ok, err := fsutil.IsFile(explicit)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &config.MissingInputFileError{Path: explicit}
		}
		return explicit, nil
	}

	path, ok, err := fsutil.FirstExisting(dir, candidates...)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &config.MissingInputFileError{Path: filepath.Join(dir, candidates[0])}
	}
	return path, nil
}

// parseFile picks the HCL native or JSON parser by extension.
func parseFile(parser *hclparse.Parser, path string) (*hcl.File, error) {
	var file *hcl.File
	var diags hcl.Diagnostics
	if filepath.Ext(path) == ".json" {
		file, diags = parser.ParseJSONFile(path)
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}
	return file, nil
}

// isExprDefined checks if an HCL expression was actually present in the
// source. gohcl fills omitted optional expression fields with a zero-width
// placeholder, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}
