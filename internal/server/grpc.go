package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// duelServer implements DuelServer over a match manager.
type duelServer struct {
	matches *match.Manager
	logger  *zap.Logger
}

// NewDuelServer creates the duel service.
func NewDuelServer(matches *match.Manager, logger *zap.Logger) DuelServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &duelServer{matches: matches, logger: logger}
}

// CreateMatch opens a match. Request: role, player_id, name.
func (s *duelServer) CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	role, err := rules.ParseRole(stringField(req, "role"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	playerID := stringField(req, "player_id")
	if playerID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "player_id is required")
	}

	ticket, err := s.matches.Create(role, playerID, stringField(req, "name"))
	if err != nil {
		s.logger.Warn("create match failed", zap.String("player_id", playerID), zap.Error(err))
		return nil, toStatus(err)
	}
	return toStruct(ticket)
}

// JoinMatch takes the free seat. Request: match_id, player_id, name.
func (s *duelServer) JoinMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requireField(req, "match_id")
	if err != nil {
		return nil, err
	}
	playerID, err := requireField(req, "player_id")
	if err != nil {
		return nil, err
	}

	ticket, err := s.matches.Join(matchID, playerID, stringField(req, "name"))
	if err != nil {
		s.logger.Warn("join match failed",
			zap.String("match_id", matchID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
		return nil, toStatus(err)
	}
	return toStruct(ticket)
}

// ApplyMove submits a move. Request: match_id, token, move, args.
// A rejected move is a normal response with accepted false.
func (s *duelServer) ApplyMove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requireField(req, "match_id")
	if err != nil {
		return nil, err
	}
	move, err := requireField(req, "move")
	if err != nil {
		return nil, err
	}

	out, err := s.matches.Apply(ctx, matchID, stringField(req, "token"), rules.Move(move), listField(req, "args")...)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{
		"accepted": out.Accepted,
		"message":  out.Message,
		"view":     out.View,
	})
}

// GetState returns the caller's view of a match. Request: match_id, token.
func (s *duelServer) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	matchID, err := requireField(req, "match_id")
	if err != nil {
		return nil, err
	}
	role, err := s.matches.Authenticate(matchID, stringField(req, "token"))
	if err != nil {
		return nil, toStatus(err)
	}
	view, err := s.matches.View(matchID, role)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"view": view})
}

// toStatus maps match errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, match.ErrBadToken):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, match.ErrSeatTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, match.ErrNotStarted):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func requireField(req *structpb.Struct, name string) (string, error) {
	v := stringField(req, name)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return v, nil
}

func listField(req *structpb.Struct, name string) []string {
	values := req.GetFields()[name].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
