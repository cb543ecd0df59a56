package command

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mizogg/GUI-keyhunt/internal/config"
	"github.com/Mizogg/GUI-keyhunt/internal/keyspace"
)

func testBuilder() *Builder {
	return &Builder{Program: "keyhunt", InputDir: "input"}
}

func testRange(t *testing.T) keyspace.Range {
	t.Helper()
	r, err := keyspace.ParseRange("20000000000000000:3ffffffffffffffff")
	require.NoError(t, err)
	return r
}

func TestBuild_DefaultAddress(t *testing.T) {
	inv, err := testBuilder().Build(config.DefaultSearch(), testRange(t), 1)
	require.NoError(t, err)

	want := []string{
		"-m", "address", "-t", "1",
		"-r", "20000000000000000:3ffffffffffffffff",
		"-f", filepath.Join("input", "btc.txt"),
		"-S",
		"-I", "1",
		"-l", "compress",
	}
	if diff := cmp.Diff(want, inv.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "keyhunt", inv.Program)
}

func TestBuild_Deterministic(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.Vanity = config.VanityOptions{Enabled: true, Prefixes: "1Abc 1Def"}
	cfg.Quiet = true
	r := testRange(t)

	a, err := testBuilder().Build(cfg, r, 2)
	require.NoError(t, err)
	b, err := testBuilder().Build(cfg, r, 2)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}

func TestBuild_BSGSBothOmitsStride(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.Mode = config.ModeBSGS
	cfg.Movement = config.MovementBoth
	cfg.Stride = "5"
	cfg.Crypto = config.CryptoBTC

	inv, err := testBuilder().Build(cfg, testRange(t), 1)
	require.NoError(t, err)

	assert.NotContains(t, inv.Args, "-I")
	assert.NotContains(t, inv.Args, "5")

	want := []string{
		"-m", "bsgs", "-t", "1",
		"-r", "20000000000000000:3ffffffffffffffff",
		"-f", filepath.Join("input", "btc.txt"),
		"-B", "both",
		"-l", "compress",
		"-k", "1",
	}
	if diff := cmp.Diff(want, inv.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_BSGSKeepsStrideForOtherMovements(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.Mode = config.ModeBSGS
	cfg.Movement = config.MovementDance
	cfg.Stride = "5"
	cfg.K = 512
	cfg.N = "0x1000000000000000"

	inv, err := testBuilder().Build(cfg, testRange(t), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-m", "bsgs", "-t", "1",
		"-r", "20000000000000000:3ffffffffffffffff",
		"-f", filepath.Join("input", "btc.txt"),
		"-B", "dance",
		"-I", "5",
		"-l", "compress",
		"-n", "0x1000000000000000",
		"-k", "512",
	}, inv.Args)
}

func TestBuild_VanityGatedByMode(t *testing.T) {
	vanity := config.VanityOptions{Enabled: true, Prefixes: "1Good, 1Luck 1Xyz"}

	t.Run("address emits one clause per prefix", func(t *testing.T) {
		cfg := config.DefaultSearch()
		cfg.Vanity = vanity

		inv, err := testBuilder().Build(cfg, testRange(t), 1)
		require.NoError(t, err)

		var prefixes []string
		for i, arg := range inv.Args {
			if arg == "-v" {
				prefixes = append(prefixes, inv.Args[i+1])
			}
		}
		assert.Equal(t, []string{"1Good", "1Luck", "1Xyz"}, prefixes)
	})

	t.Run("bsgs is rejected without emitting", func(t *testing.T) {
		cfg := config.DefaultSearch()
		cfg.Mode = config.ModeBSGS
		cfg.Vanity = vanity

		inv, err := testBuilder().Build(cfg, testRange(t), 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrConfig))
		assert.NotContains(t, inv.Args, "-v")
	})

	t.Run("disabled vanity emits nothing", func(t *testing.T) {
		cfg := config.DefaultSearch()
		cfg.Vanity = config.VanityOptions{Prefixes: "1Good"}

		inv, err := testBuilder().Build(cfg, testRange(t), 1)
		require.NoError(t, err)
		assert.NotContains(t, inv.Args, "-v")
	})
}

func TestBuild_EthSuppressesLook(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.Crypto = config.CryptoETH
	cfg.Look = config.LookBoth
	cfg.Movement = config.MovementRandom

	inv, err := testBuilder().Build(cfg, testRange(t), 1)
	require.NoError(t, err)

	assert.NotContains(t, inv.Args, "-l")
	assert.Contains(t, inv.Args, "-R")
	i := slices.Index(inv.Args, "-c")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "eth", inv.Args[i+1])
}

func TestBuild_BTCNeverEmitsCrypto(t *testing.T) {
	inv, err := testBuilder().Build(config.DefaultSearch(), testRange(t), 1)
	require.NoError(t, err)
	assert.NotContains(t, inv.Args, "-c")
}

func TestBuild_AddressExtras(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.InputFile = ""
	cfg.Stride = ""
	cfg.Minikey.Enabled = true
	cfg.Alphabet = config.AlphabetOptions{Enabled: true, Chars: "abc"}
	cfg.Endomorphism = true
	cfg.Bits = 66
	cfg.Quiet = true
	cfg.Matrix = true

	inv, err := testBuilder().Build(cfg, testRange(t), 1)
	require.NoError(t, err)

	want := []string{
		"-m", "address", "-t", "1",
		"-r", "20000000000000000:3ffffffffffffffff",
		"-S",
		"-l", "compress",
		"-C", "SRPqx8QiwnW4WNWnTVa2W5",
		"-8", "abc",
		"-e",
		"-b", "66",
		"-q",
	}
	if diff := cmp.Diff(want, inv.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RejectsIllegalMovement(t *testing.T) {
	cfg := config.DefaultSearch()
	cfg.Movement = config.MovementBackward

	_, err := testBuilder().Build(cfg, testRange(t), 1)
	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "movement", ce.Field)
}

func TestBuild_AbsoluteInputPathKept(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join(t.TempDir(), "list.txt"))
	require.NoError(t, err)

	cfg := config.DefaultSearch()
	cfg.InputFile = abs

	inv, err := testBuilder().Build(cfg, testRange(t), 1)
	require.NoError(t, err)
	i := slices.Index(inv.Args, "-f")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, abs, inv.Args[i+1])
}

func TestBuildAll(t *testing.T) {
	parts, err := keyspace.Split(testRange(t), 4)
	require.NoError(t, err)

	invs, err := testBuilder().BuildAll(config.DefaultSearch(), parts)
	require.NoError(t, err)
	require.Len(t, invs, 4)

	for i, inv := range invs {
		j := slices.Index(inv.Args, "-r")
		require.GreaterOrEqual(t, j, 0)
		assert.Equal(t, parts[i].String(), inv.Args[j+1])
	}

	bad := config.DefaultSearch()
	bad.Threads = 0
	invs, err = testBuilder().BuildAll(bad, parts)
	assert.Error(t, err)
	assert.Nil(t, invs)
}

func TestNewBuilder(t *testing.T) {
	b := NewBuilder("keyhunt", "input")
	assert.Equal(t, filepath.Join("keyhunt", Executable), b.Program)

	b = NewBuilder("", "")
	assert.Equal(t, Executable, b.Program)
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Program: "keyhunt", Args: []string{"-m", "address", "-f", "my list.txt", "-v", ""}}
	assert.Equal(t, `keyhunt -m address -f "my list.txt" -v ""`, inv.String())

	argv := inv.Argv()
	argv[0] = "changed"
	assert.Equal(t, "keyhunt", inv.Program)
}
