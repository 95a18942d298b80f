package world

import (
	"time"

	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/world/feature/economy"
	"github.com/jbradberry/universe/internal/sim/world/feature/movement"
	"github.com/jbradberry/universe/internal/sim/world/feature/orders"
)

// TurnLogger receives one entry per generated turn. Implemented in
// internal/persistence/log.
type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

type TurnLogEntry struct {
	Turn      int64          `json:"turn"`
	Digest    string         `json:"digest"`
	Entities  int            `json:"entities"`
	Applied   int            `json:"applied"`
	Dropped   int            `json:"dropped"`
	Fulfilled int            `json:"fulfilled"`
	Commands  protocol.Batch `json:"commands,omitempty"`
}

type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Report summarises one generated turn.
type Report struct {
	Turn     int64
	Digest   string
	Entities int

	Update   orders.Result
	Movement movement.Result
	Mining   economy.MiningResult
	Growth   economy.GrowthResult

	Stages []StageTiming
}
