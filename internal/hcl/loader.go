// Package hcl is the HCL implementation of the config.Loader interface.
//
// A configuration file holds up to three blocks:
//
//	engine {
//	  window_ms         = 5000
//	  min_bond_strength = 0.2
//	  ideal_spacing     = 100
//	  max_displacement  = 50
//	  locality_strength = 0.35
//	  min_movement      = 0.5
//	}
//
//	protocol {
//	  state_dir        = "/var/lib/tectonic"
//	  poll_interval_ms = 1000
//	}
//
//	history {
//	  path = "/var/lib/tectonic/history.db"
//	}
//
// Every attribute is optional; missing values fall back to config.Default().
package hcl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/tdw419/geometry-os-sub002/internal/config"
	"github.com/tdw419/geometry-os-sub002/internal/ctxlog"
	"github.com/tdw419/geometry-os-sub002/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Loader is the HCL-specific implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "engine"},
		{Type: "protocol"},
		{Type: "history"},
	},
}

// Load reads every .hcl file under the given paths and overlays the decoded
// blocks on the default model. Later files win on conflicting attributes.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := config.Default()

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL config files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := decodeInto(model, hclFile.Body); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}

	logger.Debug("Configuration loaded.", "files", len(files),
		"state_dir", model.Protocol.StateDir, "window", model.Engine.Window)
	return model, nil
}

// findAllHCLFiles resolves each path to the .hcl files beneath it. Paths
// that do not exist are skipped, so an absent optional config file is not an
// error.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			all = append(all, found...)
		} else {
			all = append(all, path)
		}
	}
	return all, nil
}

// decodeInto overlays the blocks found in body on the model.
func decodeInto(model *config.Model, body hcl.Body) error {
	content, diags := body.Content(rootSchema)
	if diags.HasErrors() {
		return diags
	}
	for _, block := range content.Blocks {
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return diags
		}
		var err error
		switch block.Type {
		case "engine":
			err = decodeEngine(&model.Engine, attrs)
		case "protocol":
			err = decodeProtocol(&model.Protocol, attrs)
		case "history":
			err = decodeHistory(&model.History, attrs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeEngine(e *config.Engine, attrs hcl.Attributes) error {
	if err := attrDuration(attrs, "window_ms", &e.Window); err != nil {
		return err
	}
	if err := attrFloat(attrs, "min_bond_strength", &e.MinBondStrength); err != nil {
		return err
	}
	if err := attrFloat(attrs, "ideal_spacing", &e.IdealSpacing); err != nil {
		return err
	}
	if err := attrFloat(attrs, "max_displacement", &e.MaxDisplacement); err != nil {
		return err
	}
	if err := attrFloat(attrs, "locality_strength", &e.LocalityStrength); err != nil {
		return err
	}
	return attrFloat(attrs, "min_movement", &e.MinMovement)
}

func decodeProtocol(p *config.Protocol, attrs hcl.Attributes) error {
	if err := attrString(attrs, "state_dir", &p.StateDir); err != nil {
		return err
	}
	return attrDuration(attrs, "poll_interval_ms", &p.PollInterval)
}

func decodeHistory(h *config.History, attrs hcl.Attributes) error {
	return attrString(attrs, "path", &h.Path)
}

// attrValue evaluates the named attribute, converts it to the wanted cty
// type, and reports whether it was present at all.
func attrValue(attrs hcl.Attributes, name string, want cty.Type) (cty.Value, bool, error) {
	attr, ok := attrs[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, false, fmt.Errorf("evaluating %s: %w", name, diags)
	}
	val, err := convert.Convert(val, want)
	if err != nil {
		return cty.NilVal, false, fmt.Errorf("attribute %s: %w", name, err)
	}
	return val, true, nil
}

func attrFloat(attrs hcl.Attributes, name string, dst *float64) error {
	val, ok, err := attrValue(attrs, name, cty.Number)
	if err != nil || !ok {
		return err
	}
	f, _ := val.AsBigFloat().Float64()
	*dst = f
	return nil
}

func attrDuration(attrs hcl.Attributes, name string, dst *time.Duration) error {
	val, ok, err := attrValue(attrs, name, cty.Number)
	if err != nil || !ok {
		return err
	}
	ms, _ := val.AsBigFloat().Int64()
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}

func attrString(attrs hcl.Attributes, name string, dst *string) error {
	val, ok, err := attrValue(attrs, name, cty.String)
	if err != nil || !ok {
		return err
	}
	*dst = val.AsString()
	return nil
}
