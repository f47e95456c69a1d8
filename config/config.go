// Package config loads SCSA machine profiles from TOML.
//
// A profile overlays the built-in SCSA-16 fixed boot defaults, so a file
// only needs the keys it changes:
//
//	[machine]
//	isa = "scsa16"
//	width = 16
//
//	[boot]
//	origin = 0x0100
//	firmware = 0xF000
package config

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/scsa/boot"
	"github.com/ezrec/scsa/cpu"
	"github.com/ezrec/scsa/translate"
)

var f = translate.From

var (
	ErrMaxCycles    = errors.New(f("max_cycles must be positive"))
	ErrImageSize    = errors.New(f("max_image_size invalid"))
	ErrImageName    = errors.New(f("image name missing"))
	ErrSignatureOp  = errors.New(f("signature_opcode must be a 4-bit opcode"))
	ErrAddressRange = errors.New(f("address outside memory"))
)

// ErrConfigKey reports keys that do not belong to a profile.
type ErrConfigKey []string

func (ek ErrConfigKey) Error() string {
	return f("unknown configuration keys: %v", strings.Join(ek, ", "))
}

// Machine is the [machine] section.
type Machine struct {
	Isa        string `toml:"isa"`
	Width      int    `toml:"width"`
	MemorySize int    `toml:"memory_size"`
	OutputPort uint16 `toml:"output_port"`
	MaxCycles  int    `toml:"max_cycles"`
}

// Boot is the [boot] section.
type Boot struct {
	Image           string `toml:"image"`
	MaxImageSize    int    `toml:"max_image_size"`
	Origin          uint16 `toml:"origin"`
	Firmware        uint16 `toml:"firmware"`
	SignatureOpcode uint8  `toml:"signature_opcode"`
	SignatureByte   uint8  `toml:"signature_byte"`
}

// Security is the [security] section: the PSI/O security register.
type Security struct {
	Width    int    `toml:"width"`
	LimbBits int    `toml:"limb_bits"`
	TagShift int    `toml:"tag_shift"`
	TagBits  int    `toml:"tag_bits"`
	Tag      uint64 `toml:"tag"`
	Expected uint64 `toml:"expected"`
}

// Config is a machine profile.
type Config struct {
	Machine  Machine  `toml:"machine"`
	Boot     Boot     `toml:"boot"`
	Security Security `toml:"security"`
}

const DEFAULT_MAX_CYCLES = 1000

// Default returns the SCSA-16 fixed boot profile.
func Default() Config {
	cc := cpu.DefaultConfig()
	desc := boot.DefaultDescriptor()
	wide := cpu.SCSA120

	return Config{
		Machine: Machine{
			Isa:        cc.Isa.Name,
			Width:      cc.Width,
			MemorySize: cc.MemorySize,
			OutputPort: cc.OutputPort,
			MaxCycles:  DEFAULT_MAX_CYCLES,
		},
		Boot: Boot{
			Image:           boot.IMAGE_NAME,
			MaxImageSize:    desc.MaxImageSize,
			Origin:          desc.Origin,
			Firmware:        desc.Firmware,
			SignatureOpcode: uint8(desc.SignatureOpcode),
			SignatureByte:   desc.SignatureByte,
		},
		Security: Security{
			Width:    wide.Width,
			LimbBits: wide.LimbBits,
			TagShift: wide.Tag.Shift,
			TagBits:  wide.Tag.Bits,
			Tag:      wide.Expected,
			Expected: wide.Expected,
		},
	}
}

// Decode overlays a TOML profile on the defaults.
func Decode(r io.Reader) (cfg Config, err error) {
	cfg = Default()

	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make(ErrConfigKey, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		err = keys
		return
	}

	err = cfg.Validate()
	return
}

// Load reads a profile file. An empty path returns the defaults.
func Load(path string) (cfg Config, err error) {
	if len(path) == 0 {
		cfg = Default()
		return
	}

	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	return Decode(file)
}

// Validate checks the profile for consistency.
func (cfg Config) Validate() (err error) {
	cc, err := cfg.Cpu()
	if err != nil {
		return
	}
	err = cc.Validate()
	if err != nil {
		return
	}

	bc := cfg.Boot
	switch {
	case cfg.Machine.MaxCycles <= 0:
		err = ErrMaxCycles
	case len(bc.Image) == 0:
		err = ErrImageName
	case bc.MaxImageSize <= 0:
		err = ErrImageSize
	case bc.SignatureOpcode > uint8(cpu.OP_MASK):
		err = ErrSignatureOp
	case int(bc.Origin) >= cc.MemorySize,
		int(bc.Firmware)+cpu.INSTRUCTION_SIZE > cc.MemorySize,
		int(cfg.Machine.OutputPort) >= cc.MemorySize:
		err = ErrAddressRange
	}
	if err != nil {
		return
	}

	_, err = cfg.Register()
	return
}

// Cpu returns the processor configuration.
func (cfg Config) Cpu() (cc cpu.Config, err error) {
	isa, err := cpu.TableByName(cfg.Machine.Isa)
	if err != nil {
		return
	}

	cc = cpu.Config{
		Isa:        isa,
		Width:      cfg.Machine.Width,
		MemorySize: cfg.Machine.MemorySize,
		OutputPort: cfg.Machine.OutputPort,
	}
	return
}

// Descriptor returns the boot descriptor.
func (cfg Config) Descriptor() boot.Descriptor {
	return boot.Descriptor{
		MaxImageSize:    cfg.Boot.MaxImageSize,
		Origin:          cfg.Boot.Origin,
		Firmware:        cfg.Boot.Firmware,
		SignatureOpcode: cpu.CodeOp(cfg.Boot.SignatureOpcode),
		SignatureByte:   cfg.Boot.SignatureByte,
	}
}

// Profile returns the security register layout.
func (cfg Config) Profile() cpu.WideProfile {
	sc := cfg.Security
	return cpu.WideProfile{
		Name:     "security",
		Width:    sc.Width,
		LimbBits: sc.LimbBits,
		Tag:      cpu.TagSpec{Shift: sc.TagShift, Bits: sc.TagBits},
		Expected: sc.Expected,
	}
}

// Register builds the security register with its configured tag.
func (cfg Config) Register() (reg *cpu.Register, err error) {
	wp := cfg.Profile()
	reg, err = wp.NewRegister()
	if err != nil {
		return
	}
	err = reg.SetTag(wp.Tag, cfg.Security.Tag)
	if err != nil {
		reg = nil
	}
	return
}
