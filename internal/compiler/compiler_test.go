package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncgen/internal/blocks"
	"asyncgen/internal/compiler"
	"asyncgen/internal/domain"
)

func block(t domain.BlockType, fields map[string]string) domain.Block {
	f := t.DefaultFields()
	for k, v := range fields {
		f[k] = v
	}
	return domain.Block{ID: string(t), Type: t, Fields: f}
}

func TestCompile_Empty(t *testing.T) {
	doc := compiler.Compile(nil)
	assert.Equal(t, domain.Document{"asyncapi": "2.6.0"}, doc)
}

func TestCompile_InfoAndServer(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeInfo, map[string]string{"title": "T", "version": "1.0"}),
		block(domain.BlockTypeServer, map[string]string{"url": "u", "protocol": "p"}),
	})

	want := domain.Document{
		"asyncapi": "2.6.0",
		"info":     domain.Document{"title": "T", "version": "1.0"},
		"servers": domain.Document{
			"myServer": domain.Document{"url": "u", "protocol": "p"},
		},
	}
	assert.Equal(t, want, doc)
}

func TestCompile_InfoLastWins(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeInfo, map[string]string{"title": "A", "version": "1"}),
		block(domain.BlockTypeInfo, map[string]string{"title": "B"}),
	})
	info := doc.Section("info")
	require.NotNil(t, info)
	assert.Equal(t, "B", info.String("title"))
	assert.Equal(t, "", info.String("version"), "last info block replaces every field")
}

func TestCompile_ServerReplacesWholesale(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeServer, map[string]string{"url": "a", "protocol": "amqp"}),
		block(domain.BlockTypeServer, map[string]string{"url": "b"}),
	})
	assert.Equal(t, domain.Document{
		"myServer": domain.Document{"url": "b", "protocol": ""},
	}, doc.Section("servers"))
}

// Regression guard: each channel block replaces the whole channels map, so
// only the last one is ever compiled.
func TestCompile_ChannelsReplacedNotMerged(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeChannel, map[string]string{"name": "orders", "description": "first"}),
		block(domain.BlockTypeChannel, map[string]string{"name": "payments", "description": "second"}),
	})
	assert.Equal(t, domain.Document{
		"payments": domain.Document{"description": "second"},
	}, doc.Section("channels"))
}

func TestCompile_ChannelFallbackKey(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeChannel, map[string]string{"description": "d"}),
	})
	assert.Equal(t, domain.Document{
		"myChannel": domain.Document{"description": "d"},
	}, doc.Section("channels"))
}

func TestCompile_MessagesUnderComponents(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeMessage, map[string]string{"name": "OrderPlaced", "payload": "{}"}),
		block(domain.BlockTypeMessage, map[string]string{"payload": "raw"}),
	})
	assert.Equal(t, domain.Document{
		"messages": domain.Document{
			"myMessage": domain.Document{"payload": "raw"},
		},
	}, doc.Section("components"))
}

func TestCompile_AbsentTypesAbsentKeys(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeChannel, map[string]string{"name": "c"}),
	})
	assert.Contains(t, doc, "channels")
	assert.NotContains(t, doc, "info")
	assert.NotContains(t, doc, "servers")
	assert.NotContains(t, doc, "components")
}

func TestCompile_OrderDeterminesPrecedence(t *testing.T) {
	a := block(domain.BlockTypeInfo, map[string]string{"title": "A"})
	b := block(domain.BlockTypeInfo, map[string]string{"title": "B"})

	assert.Equal(t, "B", compiler.Compile([]domain.Block{a, b}).Section("info").String("title"))
	assert.Equal(t, "A", compiler.Compile([]domain.Block{b, a}).Section("info").String("title"))
}

func TestCompile_Idempotent(t *testing.T) {
	s := blocks.New()
	for _, typ := range domain.BlockTypes {
		id, err := s.AddBlock(typ)
		require.NoError(t, err)
		changes := map[string]string{}
		for _, f := range typ.Schema() {
			changes[f] = f + "-value"
		}
		require.NoError(t, s.UpdateBlock(id, changes))
	}

	snap := s.Snapshot()
	first := compiler.Compile(snap)
	second := compiler.Compile(snap)
	assert.Equal(t, first, second)
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	in := []domain.Block{block(domain.BlockTypeServer, map[string]string{"url": "u"})}
	doc := compiler.Compile(in)
	doc.Section("servers").Section("myServer")["url"] = "changed"
	assert.Equal(t, "u", in[0].Fields["url"])
}

func TestCompile_GarbagePassesThrough(t *testing.T) {
	doc := compiler.Compile([]domain.Block{
		block(domain.BlockTypeServer, map[string]string{"url": "not a url ::", "protocol": "???"}),
	})
	assert.Equal(t, "not a url ::", doc.Section("servers").Section("myServer").String("url"))
}

func TestOptions_AccumulateSection(t *testing.T) {
	opts := compiler.Options{Policy: compiler.AccumulateSection}
	doc := opts.Compile([]domain.Block{
		block(domain.BlockTypeChannel, map[string]string{"name": "orders", "description": "1"}),
		block(domain.BlockTypeChannel, map[string]string{"name": "payments", "description": "2"}),
		block(domain.BlockTypeChannel, map[string]string{"name": "orders", "description": "3"}),
		block(domain.BlockTypeMessage, map[string]string{"name": "A", "payload": "a"}),
		block(domain.BlockTypeMessage, map[string]string{"name": "B", "payload": "b"}),
	})

	assert.Equal(t, domain.Document{
		"orders":   domain.Document{"description": "3"},
		"payments": domain.Document{"description": "2"},
	}, doc.Section("channels"))
	assert.Len(t, doc.Section("components").Section("messages"), 2)
}
