package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/registry"
	"github.com/tendant/simple-registry/pkg/registry/config"
)

const testOwner = "0x00000000000000000000000000000000000000a1"

func buildComponents(t *testing.T, dbPath string) *config.Components {
	t.Helper()
	cfg, err := config.Load(
		config.WithOwner(testOwner),
		config.WithDatabaseURL("sqlite://"+dbPath),
		config.WithEventLogging(false),
		config.WithMetrics(false),
	)
	require.NoError(t, err)
	components, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	return components
}

func TestParseOptions(t *testing.T) {
	creator := "0x00000000000000000000000000000000000000c3"
	opts, err := parseOptions([]string{
		"--creator=" + creator, "--tag=music", "--limit=10", "--offset=5", "--ttl=1h", "--json", "stray",
	})
	require.NoError(t, err)

	require.NotNil(t, opts.list.Creator)
	assert.Equal(t, common.HexToAddress(creator), *opts.list.Creator)
	assert.Equal(t, "music", opts.list.Tag)
	assert.Equal(t, 10, opts.list.Limit)
	assert.Equal(t, 5, opts.list.Offset)
	assert.Equal(t, time.Hour, opts.ttl)
	assert.True(t, opts.asJSON)
}

func TestParseOptionsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--creator=bob"},
		{"--limit=ten"},
		{"--ttl=soon"},
	} {
		_, err := parseOptions(args)
		assert.Error(t, err, args)
	}
}

func TestParseFlag(t *testing.T) {
	key, value := parseFlag("--tag=a=b")
	assert.Equal(t, "tag", key)
	assert.Equal(t, "a=b", value)

	key, value = parseFlag("--json")
	assert.Equal(t, "json", key)
	assert.Equal(t, "true", value)

	key, _ = parseFlag("-x")
	assert.Empty(t, key)
}

func TestShortAddress(t *testing.T) {
	a := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	assert.Equal(t, "0x123456...5678", shortAddress(a))
}

func TestKnownCommand(t *testing.T) {
	for _, c := range []string{"token", "contents", "proposals", "status"} {
		assert.True(t, knownCommand(c), c)
	}
	assert.False(t, knownCommand("drop"))
}

func TestRunFailureLeavesStoreClosable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	components := buildComponents(t, dbPath)
	_, err := components.Service.PublishContent(ctx, common.HexToAddress("0x00000000000000000000000000000000000000c3"),
		registry.PublishContentRequest{ContentHash: "h", Title: "Song", Price: 7})
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(ctx, &out, "token", components, options{address: "bob"})
	assert.Error(t, err)
	require.NoError(t, components.Close())

	reopened := buildComponents(t, dbPath)
	defer reopened.Close()

	out.Reset()
	require.NoError(t, run(ctx, &out, "contents", reopened, options{}))
	assert.Contains(t, out.String(), "Song")
	assert.Contains(t, out.String(), "Total: 1")
}

func TestRunStatusJSON(t *testing.T) {
	components := buildComponents(t, filepath.Join(t.TempDir(), "registry.db"))
	defer components.Close()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, "status", components, options{asJSON: true}))
	assert.Contains(t, out.String(), `"paused": false`)
	assert.Contains(t, out.String(), `"quorum": 0`)

	out.Reset()
	require.NoError(t, run(context.Background(), &out, "token", components, options{address: testOwner, ttl: time.Hour}))
	assert.NotEmpty(t, out.String())
}
