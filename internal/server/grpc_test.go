package server

import (
	"context"
	"net"
	"testing"

	"github.com/darknet-duel/duel-server-go/internal/config"
	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startGRPC serves the duel service over an in-memory listener.
func startGRPC(t *testing.T) (*DuelClient, *grpc.ClientConn) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	lis := bufconn.Listen(1 << 20)
	srv, hs := NewGRPCServer(config.GRPCConfig{MaxConcurrentStreams: 16}, NewDuelServer(newTestManager(t), logger), logger)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		hs.Shutdown()
		srv.Stop()
	})
	return NewDuelClient(conn), conn
}

func grpcTickets(t *testing.T, client *DuelClient) (att, def match.Ticket) {
	t.Helper()
	ctx := context.Background()
	resp, err := client.CreateMatch(ctx, mustStruct(t, map[string]any{"role": "attacker", "player_id": "p1", "name": "Mallory"}))
	require.NoError(t, err)
	decodeStruct(t, resp, &att)

	resp, err = client.JoinMatch(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID, "player_id": "p2", "name": "Trent"}))
	require.NoError(t, err)
	decodeStruct(t, resp, &def)
	return att, def
}

func TestDuelServiceFlow(t *testing.T) {
	client, _ := startGRPC(t)
	ctx := context.Background()
	att, def := grpcTickets(t, client)
	assert.Equal(t, rules.RoleAttacker, att.Role)
	assert.Equal(t, rules.RoleDefender, def.Role)

	resp, err := client.ApplyMove(ctx, mustStruct(t, map[string]any{
		"match_id": att.MatchID, "token": def.Token, "move": "endTurn",
	}))
	require.NoError(t, err)
	var rejected struct {
		Accepted bool   `json:"accepted"`
		Message  string `json:"message"`
	}
	decodeStruct(t, resp, &rejected)
	assert.False(t, rejected.Accepted)
	assert.NotEmpty(t, rejected.Message)

	resp, err = client.ApplyMove(ctx, mustStruct(t, map[string]any{
		"match_id": att.MatchID, "token": att.Token, "move": "endTurn", "args": []any{},
	}))
	require.NoError(t, err)
	var applied struct {
		Accepted bool      `json:"accepted"`
		Message  string    `json:"message"`
		View     game.View `json:"view"`
	}
	decodeStruct(t, resp, &applied)
	assert.True(t, applied.Accepted)
	assert.Equal(t, "Defender's turn", applied.Message)
	assert.Equal(t, rules.RoleAttacker, applied.View.Viewer)

	resp, err = client.GetState(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID, "token": def.Token}))
	require.NoError(t, err)
	var state struct {
		View game.View `json:"view"`
	}
	decodeStruct(t, resp, &state)
	assert.Equal(t, rules.RoleDefender, state.View.Viewer)
	assert.Equal(t, rules.RoleDefender, state.View.Turn.Current)
	assert.NotEmpty(t, state.View.You.Hand)
	assert.Empty(t, state.View.Opponent.Hand)
}

func TestDuelServiceErrors(t *testing.T) {
	client, _ := startGRPC(t)
	ctx := context.Background()
	att, _ := grpcTickets(t, client)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"bad role", func() error {
			_, err := client.CreateMatch(ctx, mustStruct(t, map[string]any{"role": "referee", "player_id": "p9"}))
			return err
		}, codes.InvalidArgument},
		{"missing player", func() error {
			_, err := client.CreateMatch(ctx, mustStruct(t, map[string]any{"role": "attacker"}))
			return err
		}, codes.InvalidArgument},
		{"unknown match", func() error {
			_, err := client.JoinMatch(ctx, mustStruct(t, map[string]any{"match_id": "nope", "player_id": "p9"}))
			return err
		}, codes.NotFound},
		{"full match", func() error {
			_, err := client.JoinMatch(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID, "player_id": "p9"}))
			return err
		}, codes.AlreadyExists},
		{"forged token", func() error {
			_, err := client.ApplyMove(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID, "token": "x", "move": "endTurn"}))
			return err
		}, codes.PermissionDenied},
		{"missing move", func() error {
			_, err := client.ApplyMove(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID, "token": att.Token}))
			return err
		}, codes.InvalidArgument},
		{"state without token", func() error {
			_, err := client.GetState(ctx, mustStruct(t, map[string]any{"match_id": att.MatchID}))
			return err
		}, codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestApplyMoveBeforeOpponentJoins(t *testing.T) {
	client, _ := startGRPC(t)
	ctx := context.Background()
	resp, err := client.CreateMatch(ctx, mustStruct(t, map[string]any{"role": "defender", "player_id": "p1"}))
	require.NoError(t, err)
	var ticket match.Ticket
	decodeStruct(t, resp, &ticket)

	_, err = client.ApplyMove(ctx, mustStruct(t, map[string]any{"match_id": ticket.MatchID, "token": ticket.Token, "move": "endTurn"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestHealthService(t *testing.T) {
	_, conn := startGRPC(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
