package server

import (
	"encoding/json"
	"testing"

	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestManager(t *testing.T) *match.Manager {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(cat, game.DefaultRules(), logger)
	return match.NewManager(engine, logger,
		match.WithTokenCost(bcrypt.MinCost),
		match.WithSeedSource(func() int64 { return 7 }),
	)
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

// decodeStruct unpacks a response Struct into v.
func decodeStruct(t *testing.T, s *structpb.Struct, v any) {
	t.Helper()
	data, err := protojson.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
