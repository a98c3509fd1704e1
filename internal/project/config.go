// Package project locates and reads the kernlower.toml manifest and turns it
// into pipeline and emitter options.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"kernlower/internal/backend/llvm"
	"kernlower/internal/diag"
	"kernlower/internal/kir"
	"kernlower/internal/lower"
)

// ErrInvalidConfig wraps every validation failure reported by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// LibraryConfig is the [library] section.
type LibraryConfig struct {
	Path string `toml:"path"`
	// Explicit is set when Path came from a manifest or flag rather than
	// the default; the default is looked up next to each input.
	Explicit bool `toml:"-"`
	// Optional links an empty library when Path does not exist.
	Optional bool `toml:"optional"`
}

// LoweringConfig is the [lowering] section.
type LoweringConfig struct {
	AddrSpace    uint32   `toml:"addrspace"`
	DeadDecode   string   `toml:"dead_decode"`
	ManglePrefix string   `toml:"mangle_prefix"`
	Intrinsics   []string `toml:"intrinsics"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	GenericTable string `toml:"generic_table"`
	DeviceTable  string `toml:"device_table"`
	Triple       string `toml:"triple"`
}

// Config is the resolved manifest. Path is empty when defaults were used.
type Config struct {
	Path     string         `toml:"-"`
	Library  LibraryConfig  `toml:"library"`
	Lowering LoweringConfig `toml:"lowering"`
	Output   OutputConfig   `toml:"output"`
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Library: LibraryConfig{Path: llvm.DefaultLibraryPath, Optional: true},
		Lowering: LoweringConfig{
			AddrSpace:    uint32(lower.ArrayLoweringOptions.AddrSpace),
			DeadDecode:   lower.DeadDecodeErase.String(),
			ManglePrefix: lower.DefaultManglePrefix,
			Intrinsics:   append([]string(nil), lower.DefaultIntrinsics...),
		},
		Output: OutputConfig{
			GenericTable: llvm.DefaultTableNames.Generic,
			DeviceTable:  llvm.DefaultTableNames.Device,
		},
	}
}

// Load parses the manifest at path. Keys the file leaves out keep their
// defaults. A relative library path is resolved against the manifest
// directory.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalidConfig, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if meta.IsDefined("library", "path") {
		cfg.Library.Explicit = true
		if !meta.IsDefined("library", "optional") {
			cfg.Library.Optional = false
		}
		if p := strings.TrimSpace(cfg.Library.Path); p != "" && !filepath.IsAbs(p) {
			cfg.Library.Path = filepath.Join(filepath.Dir(path), p)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest kernlower.toml above startDir, or returns the
// defaults when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks values the decoder cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Library.Path) == "" {
		return fmt.Errorf("%w: [library].path is empty", ErrInvalidConfig)
	}
	if _, err := lower.ParseDeadDecodeMode(c.Lowering.DeadDecode); err != nil {
		return fmt.Errorf("%w: [lowering].dead_decode: %w", ErrInvalidConfig, err)
	}
	if c.Lowering.ManglePrefix == "" {
		return fmt.Errorf("%w: [lowering].mangle_prefix is empty", ErrInvalidConfig)
	}
	for _, name := range c.Lowering.Intrinsics {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: [lowering].intrinsics has an empty name", ErrInvalidConfig)
		}
	}
	if c.Output.GenericTable == "" || c.Output.DeviceTable == "" {
		return fmt.Errorf("%w: [output] table names must not be empty", ErrInvalidConfig)
	}
	if c.Output.GenericTable == c.Output.DeviceTable {
		return fmt.Errorf("%w: [output] generic and device tables are both %q", ErrInvalidConfig, c.Output.GenericTable)
	}
	return nil
}

// SetLibrary overrides the library path from the command line. The file
// must exist.
func (c *Config) SetLibrary(path string) {
	c.Library = LibraryConfig{Path: path, Explicit: true}
}

// LibraryPath returns the support library used when lowering input.
func (c Config) LibraryPath(input string) string {
	if c.Library.Explicit || filepath.IsAbs(c.Library.Path) {
		return c.Library.Path
	}
	return filepath.Join(filepath.Dir(input), c.Library.Path)
}

// LowerOptions builds pipeline options for lowering input. OnLowered and
// Timer are left for the caller.
func (c Config) LowerOptions(input string, r diag.Reporter) (lower.Options, error) {
	mode, err := lower.ParseDeadDecodeMode(c.Lowering.DeadDecode)
	if err != nil {
		return lower.Options{}, err
	}
	opts := lower.DefaultOptions()
	opts.Signature.AddrSpace = kir.AddrSpace(c.Lowering.AddrSpace)
	opts.DeadDecode = mode
	opts.Normalizer = lower.Normalizer{Prefix: c.Lowering.ManglePrefix}
	opts.Intrinsics = append([]string(nil), c.Lowering.Intrinsics...)
	opts.Library = llvm.LibraryFile{Path: c.LibraryPath(input), Optional: c.Library.Optional, Reporter: r}
	opts.Reporter = r
	opts.File = input
	return opts, nil
}

// EmitOptions builds emitter options from c.
func (c Config) EmitOptions(r diag.Reporter) llvm.EmitOptions {
	return llvm.EmitOptions{
		Tables:   llvm.TableNames{Generic: c.Output.GenericTable, Device: c.Output.DeviceTable},
		Triple:   c.Output.Triple,
		Reporter: r,
	}
}

// Fingerprint hashes every setting that changes lowered output. The
// library contents are hashed separately by the cache.
func (c Config) Fingerprint() Digest {
	var b strings.Builder
	fields := []string{
		"addrspace=" + strconv.FormatUint(uint64(c.Lowering.AddrSpace), 10),
		"dead_decode=" + strings.ToLower(strings.TrimSpace(c.Lowering.DeadDecode)),
		"mangle_prefix=" + c.Lowering.ManglePrefix,
		"intrinsics=" + strings.Join(c.Lowering.Intrinsics, ","),
		"generic_table=" + c.Output.GenericTable,
		"device_table=" + c.Output.DeviceTable,
		"triple=" + c.Output.Triple,
	}
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return HashBytes([]byte(b.String()))
}
