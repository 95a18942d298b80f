package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Command actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionReorder = "reorder"
	ActionDelete  = "delete"
)

// Command edits one actor's movement order queue.
type Command struct {
	Action   string `json:"action"`
	ActorID  int64  `json:"actor_id"`
	Seq      *int64 `json:"seq,omitempty"`
	Seq1     *int64 `json:"seq1,omitempty"`
	Seq2     *int64 `json:"seq2,omitempty"`
	Warp     *int64 `json:"warp,omitempty"`
	TargetID *int64 `json:"target_id,omitempty"`
	XT       *int64 `json:"x_t,omitempty"`
	YT       *int64 `json:"y_t,omitempty"`
}

// Batch holds a turn's commands keyed by the issuing species pk.
type Batch map[int64][]Command

// Species returns the issuing species in ascending pk order.
func (b Batch) Species() []int64 {
	out := make([]int64, 0, len(b))
	for id := range b {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len is the total number of commands in the batch.
func (b Batch) Len() int {
	n := 0
	for _, cmds := range b {
		n += len(cmds)
	}
	return n
}

// DecodeCommands decodes a batch document. Commands that fail the command
// schema, and all commands under a key that is not a species pk, are left
// out and counted in rejected. A value that is not a list counts as one
// rejected command. Only a document that is not an object is an error.
func DecodeCommands(b []byte) (batch Batch, rejected int, err error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode commands: %w", err)
	}
	batch = Batch{}
	for key, value := range doc {
		var raws []json.RawMessage
		if err := json.Unmarshal(value, &raws); err != nil {
			rejected++
			continue
		}
		species, err := strconv.ParseInt(key, 10, 64)
		if err != nil || species < 0 {
			rejected += len(raws)
			continue
		}
		for _, raw := range raws {
			cmd, ok := decodeCommand(raw)
			if !ok {
				rejected++
				continue
			}
			batch[species] = append(batch[species], cmd)
		}
	}
	return batch, rejected, nil
}

func decodeCommand(raw json.RawMessage) (Command, bool) {
	v, err := decodeRaw(raw)
	if err != nil {
		return Command{}, false
	}
	if err := commandSchema.Validate(v); err != nil {
		return Command{}, false
	}
	var cmd Command
	if err := unmarshalNumbers(raw, &cmd); err != nil {
		return Command{}, false
	}
	return cmd, true
}

func EncodeCommands(b Batch) ([]byte, error) {
	doc := make(map[string][]Command, len(b))
	for id, cmds := range b {
		doc[strconv.FormatInt(id, 10)] = cmds
	}
	return json.Marshal(doc)
}
