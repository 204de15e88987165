package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Frame is one applied move and the checksum of the state it produced.
// Every snapshotInterval-th frame, the first included, also keeps that state.
type Frame struct {
	Role     rules.Role
	Move     rules.Move
	Args     []string
	Message  string
	Checksum string
	Snapshot *MatchState
}

const snapshotInterval = 16

// Replay is a recorded match as a sequence of frames.
type Replay struct {
	MatchID      string
	Frames       []Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{
		MatchID: matchID,
		Frames:  make([]Frame, 0),
	}
}

// Record appends f as the move that produced state.
func (r *Replay) Record(f Frame, state MatchState) error {
	sum, err := Checksum(state)
	if err != nil {
		return err
	}
	f.Checksum = sum

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Frames)%snapshotInterval == 0 {
		snap := state.Clone()
		f.Snapshot = &snap
	}
	r.Frames = append(r.Frames, f)
	return nil
}

// Start rewinds playback.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the frame at the cursor and advances it.
func (r *Replay) Next() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Frames) {
		f := r.Frames[r.CurrentIndex]
		r.CurrentIndex++
		return f, true
	}
	return Frame{}, false
}

// Previous steps the cursor back and returns that frame.
func (r *Replay) Previous() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.Frames[r.CurrentIndex], true
	}
	return Frame{}, false
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Frames)
}

// FrameAt returns the frame at index.
func (r *Replay) FrameAt(index int) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.Frames) {
		return r.Frames[index], true
	}
	return Frame{}, false
}

// StateAt rebuilds the state after frame index by replaying the moves
// recorded since the closest snapshot.
func (r *Replay) StateAt(e *Engine, index int) (MatchState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.Frames) {
		return MatchState{}, fmt.Errorf("frame %d out of range", index)
	}
	base := index
	for r.Frames[base].Snapshot == nil {
		if base == 0 {
			return MatchState{}, fmt.Errorf("no snapshot before frame %d", index)
		}
		base--
	}
	state := r.Frames[base].Snapshot.Clone()
	if err := checkFrame(base, r.Frames[base], state); err != nil {
		return MatchState{}, err
	}
	for i := base + 1; i <= index; i++ {
		next, err := r.step(e, i, state)
		if err != nil {
			return MatchState{}, err
		}
		state = next
	}
	return state, nil
}

// Verify replays every move with e and reports the first frame whose state
// does not match its checksum.
func (r *Replay) Verify(e *Engine) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var state MatchState
	for i, f := range r.Frames {
		if f.Snapshot == nil {
			if i == 0 {
				return fmt.Errorf("frame 0: missing snapshot")
			}
			next, err := r.step(e, i, state)
			if err != nil {
				return err
			}
			state = next
			continue
		}
		state = f.Snapshot.Clone()
		if err := checkFrame(i, f, state); err != nil {
			return err
		}
	}
	return nil
}

// step applies frame i to state, which must be the state after frame i-1.
func (r *Replay) step(e *Engine, i int, state MatchState) (MatchState, error) {
	f := r.Frames[i]
	res := e.Do(state, f.Role, f.Move, f.Args...)
	if !res.Accepted {
		return MatchState{}, fmt.Errorf("frame %d: %s %s rejected: %s", i, f.Role, f.Move, res.Message)
	}
	if err := checkFrame(i, f, res.State); err != nil {
		return MatchState{}, err
	}
	return res.State, nil
}

func checkFrame(i int, f Frame, state MatchState) error {
	ok, err := VerifyChecksum(state, f.Checksum)
	if err != nil {
		return fmt.Errorf("frame %d: %w", i, err)
	}
	if !ok {
		return fmt.Errorf("frame %d: checksum mismatch", i)
	}
	return nil
}

// replayMetadata heads a saved replay file.
type replayMetadata struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	FrameCount int
}

const replayVersion = 2

func replayPath(directory, matchID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", matchID))
}

// SaveToFile writes the replay as a gzipped gob stream.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(replayPath(directory, r.MatchID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gz)

	meta := replayMetadata{
		MatchID:    r.MatchID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Frames {
		if err := encoder.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	decoder := gob.NewDecoder(gz)
	var meta replayMetadata
	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", meta.Version)
	}

	replay := NewReplay(meta.MatchID)
	for i := 0; i < meta.FrameCount; i++ {
		var f Frame
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, f)
	}
	return replay, nil
}

// ReplayRecorder keeps the replays of running matches.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewReplayRecorder creates a recorder saving to saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// StartRecording begins a replay for matchID, replacing any earlier one.
func (rr *ReplayRecorder) StartRecording(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[matchID] = NewReplay(matchID)

	if rr.logger != nil {
		rr.logger.Info("started replay recording", zap.String("match_id", matchID))
	}
}

// Record appends a frame if matchID is being recorded.
func (rr *ReplayRecorder) Record(matchID string, f Frame, state MatchState) {
	rr.mu.RLock()
	replay := rr.replays[matchID]
	rr.mu.RUnlock()

	if replay == nil {
		return
	}
	if err := replay.Record(f, state); err != nil {
		if rr.logger != nil {
			rr.logger.Warn("failed to record replay frame",
				zap.String("match_id", matchID),
				zap.Error(err),
			)
		}
		return
	}

	if rr.logger != nil {
		rr.logger.Debug("recorded replay frame",
			zap.String("match_id", matchID),
			zap.Int("frames", replay.Size()),
		)
	}
}

// IsRecording reports whether matchID has an open replay.
func (rr *ReplayRecorder) IsRecording(matchID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	_, ok := rr.replays[matchID]
	return ok
}

// Replay returns the open replay of matchID.
func (rr *ReplayRecorder) Replay(matchID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	r, ok := rr.replays[matchID]
	return r, ok
}

// Save writes the replay of matchID to disk and forgets it.
func (rr *ReplayRecorder) Save(matchID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[matchID]
	if !ok {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for match %s", matchID)
	}
	delete(rr.replays, matchID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("match_id", matchID),
			zap.Int("frames", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// Load reads a saved replay.
func (rr *ReplayRecorder) Load(matchID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.saveDir, matchID)
	if err != nil {
		return nil, err
	}
	if rr.logger != nil {
		rr.logger.Info("loaded replay from disk",
			zap.String("match_id", matchID),
			zap.Int("frames", replay.Size()),
		)
	}
	return replay, nil
}

// Discard drops the replay of matchID without saving it.
func (rr *ReplayRecorder) Discard(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, matchID)

	if rr.logger != nil {
		rr.logger.Debug("cleared replay from memory", zap.String("match_id", matchID))
	}
}
