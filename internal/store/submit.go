package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seanmcgon/McTrivia/internal/game"
)

// Answer submission is the one path where two connections race on the same
// record and exactly one reveal must fire, so the whole read-evaluate-write
// runs as a single script inside the store. The script records the choice,
// tests whether every connected player has answered (disconnected players
// never stall the round), scores the connected players on a reveal, snapshots
// the player map before clearing choices, and rewrites the record with a
// fresh TTL. It returns the snapshot on a reveal, "OK" otherwise, or a status
// token for the drop cases.
var submitScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return "NOT_FOUND"
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return "RECOVERING"
end
local g = cjson.decode(raw)
local me = g.players[ARGV[1]]
if not me then
  return "UNKNOWN_PLAYER"
end
if type(g.questions) ~= "table" or #g.questions == 0 or g.currentQ < 1 or g.currentQ > #g.questions then
  return "NO_QUESTION"
end
me.choice = ARGV[2]
local ready = true
for _, p in pairs(g.players) do
  if p.connected and p.choice == "" then
    ready = false
  end
end
local snapshot
if ready then
  local correct = g.questions[g.currentQ].correctAnswer
  for _, p in pairs(g.players) do
    if p.connected and p.choice == correct then
      p.score = p.score + 1
    end
  end
  snapshot = cjson.encode(g.players)
  for _, p in pairs(g.players) do
    p.choice = ""
  end
end
redis.call("SET", KEYS[1], cjson.encode(g), "EX", ARGV[3])
if ready then
  return snapshot
end
return "OK"
`)

// SubmitAnswer records a player's choice atomically. When the submission
// completes the round, the returned snapshot holds the scored player map
// captured before choices were cleared; otherwise the snapshot is nil.
// Re-submission before a reveal overwrites the previous choice.
func (s *Store) SubmitAnswer(ctx context.Context, code, playerID, choice string) (map[string]*game.Player, error) {
	keys := []string{gameKey(code), recoveryKey}
	res, err := submitScript.Run(ctx, s.rdb, keys, playerID, choice, int(s.opts.GameTTL.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("submit answer %s/%s: %w", code, playerID, err)
	}
	reply, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("submit answer %s/%s: unexpected reply type %T", code, playerID, res)
	}
	switch reply {
	case "NOT_FOUND":
		return nil, ErrRoomNotFound
	case "RECOVERING":
		return nil, ErrRecovering
	case "UNKNOWN_PLAYER":
		return nil, ErrUnknownPlayer
	case "NO_QUESTION":
		return nil, ErrNoQuestion
	case "OK":
		return nil, nil
	}
	var players map[string]*game.Player
	if err := json.Unmarshal([]byte(reply), &players); err != nil {
		return nil, fmt.Errorf("submit answer %s/%s: decode snapshot: %w", code, playerID, err)
	}
	return players, nil
}
