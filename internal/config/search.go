package config

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

// ErrConfig is the sentinel wrapped by every *ConfigError.
var ErrConfig = errors.New("invalid search configuration")

// ConfigError reports a search parameter, or combination of parameters,
// that the search binary cannot accept.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%q: %s", ErrConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErr(field, value, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// Crypto selects the coin whose addresses are searched.
type Crypto string

const (
	CryptoBTC Crypto = "btc"
	CryptoETH Crypto = "eth"
)

// Mode is the search mode of the binary (-m).
type Mode string

const (
	ModeAddress Mode = "address"
	ModeRMD160  Mode = "rmd160"
	ModeXPoint  Mode = "xpoint"
	ModeBSGS    Mode = "bsgs"
	ModeVanity  Mode = "vanity"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeAddress, ModeRMD160, ModeXPoint, ModeBSGS, ModeVanity}

// Movement is the traversal strategy over the assigned range.
type Movement string

const (
	MovementSequential Movement = "sequential"
	MovementRandom     Movement = "random"
	MovementBackward   Movement = "backward"
	MovementBoth       Movement = "both"
	MovementDance      Movement = "dance"
)

// Look selects compressed and/or uncompressed public keys.
type Look string

const (
	LookCompress   Look = "compress"
	LookUncompress Look = "uncompress"
	LookBoth       Look = "both"
)

// KFactors are the bsgs k values offered to users.
var KFactors = []int{1, 4, 8, 16, 24, 32, 64, 128, 256, 512, 756, 1024, 2048}

// LegalMovements returns the movement values the binary accepts for mode.
func LegalMovements(mode Mode) []Movement {
	if mode == ModeBSGS {
		return []Movement{MovementSequential, MovementBackward, MovementBoth, MovementRandom, MovementDance}
	}
	return []Movement{MovementRandom, MovementSequential}
}

// VanityModes reports whether mode accepts vanity prefixes.
func VanityModes(mode Mode) bool {
	return mode == ModeAddress || mode == ModeRMD160 || mode == ModeXPoint
}

// VanityOptions configures prefix matching.
type VanityOptions struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Prefixes string `yaml:"prefixes" json:"prefixes,omitempty"` // whitespace or comma separated
}

var prefixSeparators = regexp.MustCompile(`[,\s]+`)

// Tokens returns the configured prefixes in input order.
func (v VanityOptions) Tokens() []string {
	var out []string
	for _, tok := range prefixSeparators.Split(strings.TrimSpace(v.Prefixes), -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// MinikeyOptions configures minikey search (address mode only).
type MinikeyOptions struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Base    string `yaml:"base" json:"base,omitempty"`
}

// AlphabetOptions configures a custom minikey alphabet (address mode only).
type AlphabetOptions struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Chars   string `yaml:"chars" json:"chars,omitempty"`
}

// Search holds every search parameter except the key range. A Search is
// built once before a run and treated as read-only while the run lasts.
type Search struct {
	Crypto       Crypto          `yaml:"crypto" json:"crypto"`
	Mode         Mode            `yaml:"mode" json:"mode"`
	Movement     Movement        `yaml:"movement" json:"movement,omitempty"`
	Look         Look            `yaml:"look" json:"look,omitempty"`
	Threads      int             `yaml:"threads" json:"threads"`
	InputFile    string          `yaml:"input_file" json:"input_file,omitempty"`
	Stride       string          `yaml:"stride" json:"stride,omitempty"`
	K            int             `yaml:"k" json:"k,omitempty"`
	N            string          `yaml:"n" json:"n,omitempty"`
	Vanity       VanityOptions   `yaml:"vanity" json:"vanity"`
	Quiet        bool            `yaml:"quiet" json:"quiet"`
	Matrix       bool            `yaml:"matrix" json:"matrix"` // display only, never passed to the binary
	Minikey      MinikeyOptions  `yaml:"minikey" json:"minikey"`
	Alphabet     AlphabetOptions `yaml:"alphabet" json:"alphabet"`
	Endomorphism bool            `yaml:"endomorphism" json:"endomorphism"`
	Bits         int             `yaml:"bits" json:"bits,omitempty"`
}

// DefaultSearch mirrors the defaults of the desktop front end.
func DefaultSearch() Search {
	return Search{
		Crypto:    CryptoBTC,
		Mode:      ModeAddress,
		Movement:  MovementSequential,
		Look:      LookCompress,
		Threads:   1,
		InputFile: "btc.txt",
		Stride:    "1",
		K:         1,
		Minikey:   MinikeyOptions{Base: "SRPqx8QiwnW4WNWnTVa2W5"},
		Alphabet:  AlphabetOptions{Chars: "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"},
	}
}

// ThreadsFor returns the -t value for the given instance.
func (s Search) ThreadsFor(index int) int {
	return s.Threads
}

// StrideSuppressed reports whether the stride clause must be dropped:
// bsgs "both" manages its own stride and rejects an explicit one.
func (s Search) StrideSuppressed() bool {
	return s.Mode == ModeBSGS && s.Movement == MovementBoth
}

// Validate checks values and combinations against the host CPU count.
func (s Search) Validate() error {
	return s.ValidateFor(runtime.NumCPU())
}

// ValidateFor checks values and combinations, allowing up to cpus threads.
func (s Search) ValidateFor(cpus int) error {
	switch s.Crypto {
	case CryptoBTC, CryptoETH:
	default:
		return configErr("crypto", string(s.Crypto), "must be btc or eth")
	}

	if !slices.Contains(Modes, s.Mode) {
		return configErr("mode", string(s.Mode), "unknown mode")
	}

	if s.Movement != "" && !slices.Contains(LegalMovements(s.Mode), s.Movement) {
		return configErr("movement", string(s.Movement), "not allowed in %s mode (allowed: %v)", s.Mode, LegalMovements(s.Mode))
	}

	switch s.Look {
	case "", LookCompress, LookUncompress, LookBoth:
	default:
		return configErr("look", string(s.Look), "must be compress, uncompress or both")
	}

	if s.Threads < 1 || s.Threads > max(cpus, 1) {
		return configErr("threads", fmt.Sprint(s.Threads), "must be between 1 and %d", max(cpus, 1))
	}

	if s.Stride != "" && !s.StrideSuppressed() {
		if err := positiveInteger("stride", s.Stride); err != nil {
			return err
		}
	}

	if s.Mode == ModeBSGS {
		if s.K < 1 {
			return configErr("k", fmt.Sprint(s.K), "must be a positive integer")
		}
		if s.N != "" {
			if err := positiveInteger("n", s.N); err != nil {
				return err
			}
		}
	}

	if s.Vanity.Enabled {
		if !VanityModes(s.Mode) {
			return configErr("vanity", s.Vanity.Prefixes, "vanity prefixes are only supported in address, rmd160 and xpoint modes, not %s", s.Mode)
		}
		if len(s.Vanity.Tokens()) == 0 {
			return configErr("vanity", s.Vanity.Prefixes, "no prefixes given")
		}
	}

	if s.Minikey.Enabled {
		if s.Mode != ModeAddress {
			return configErr("minikey", s.Minikey.Base, "only supported in address mode")
		}
		if strings.TrimSpace(s.Minikey.Base) == "" {
			return configErr("minikey", "", "base is empty")
		}
	}

	if s.Alphabet.Enabled {
		if s.Mode != ModeAddress {
			return configErr("alphabet", s.Alphabet.Chars, "only supported in address mode")
		}
		if strings.TrimSpace(s.Alphabet.Chars) == "" {
			return configErr("alphabet", "", "alphabet is empty")
		}
	}

	if s.Bits < 0 || s.Bits > 256 {
		return configErr("bits", fmt.Sprint(s.Bits), "must be between 1 and 256")
	}

	return nil
}

// positiveInteger accepts decimal or 0x-prefixed hexadecimal.
func positiveInteger(field, text string) error {
	v, ok := new(big.Int).SetString(strings.TrimSpace(text), 0)
	if !ok || v.Sign() <= 0 {
		return configErr(field, text, "must be a positive integer")
	}
	return nil
}
