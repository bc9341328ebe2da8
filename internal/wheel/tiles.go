package wheel

import (
	"fmt"
	"math/rand"

	"JackpotWheel/internal/model"
)

// Mix interleaves real tiles with synthetic "waiting" tiles up to targetLen.
// The placement is drawn from a PRNG seeded by (roundID, tick), so the same
// round and tick always produce the same layout: the marquee is stable
// between rebuilds and reproducible in tests.
//
// With zero real tiles the result is all waiting tiles. Real tiles keep
// their relative order and each appears exactly once; waiting tiles are
// sprinkled throughout rather than appended.
func Mix(real []model.Tile, roundID int64, tick uint64, targetLen int) []model.Tile {
	if targetLen < len(real) {
		targetLen = len(real)
	}
	out := make([]model.Tile, targetLen)
	waiting := targetLen - len(real)

	rng := rand.New(rand.NewSource(mixSeed(roundID, tick)))
	waitingSlots := make(map[int]bool, waiting)
	for len(waitingSlots) < waiting {
		waitingSlots[rng.Intn(targetLen)] = true
	}

	ri, wi := 0, 0
	for i := 0; i < targetLen; i++ {
		if waitingSlots[i] || ri >= len(real) {
			out[i] = waitingTile(roundID, wi)
			wi++
			continue
		}
		out[i] = real[ri]
		ri++
	}
	return out
}

// BuildStrip repeats the base list repeats times and returns the index the
// animation must stop on: the winner's slot in the second-to-last copy, so
// there is always a full revolution of travel ahead of the stop.
//
// A settled round whose winner has no tile in the base list (the entry list
// lagged behind settlement) gets a synthetic winner tile appended first, so
// resolution always finds a target.
func BuildStrip(base []model.Tile, round *model.Round, repeats int) ([]model.Tile, int) {
	if repeats < 2 {
		repeats = 2
	}

	winnerIdx := -1
	for i, t := range base {
		if !t.Waiting && t.Account == round.Winner {
			winnerIdx = i
			break
		}
	}
	if winnerIdx == -1 {
		base = append(copyTiles(base), model.Tile{
			Key:     fmt.Sprintf("winner-%d", round.ID),
			Account: round.Winner,
			Amount:  round.Prize,
		})
		winnerIdx = len(base) - 1
	}

	strip := make([]model.Tile, 0, len(base)*repeats)
	for r := 0; r < repeats; r++ {
		strip = append(strip, base...)
	}
	stop := len(base)*(repeats-1) + winnerIdx
	strip[stop].Winner = true
	return strip, stop
}

func waitingTile(roundID int64, n int) model.Tile {
	return model.Tile{
		Key:     fmt.Sprintf("wait-%d-%d", roundID, n),
		Waiting: true,
	}
}

func mixSeed(roundID int64, tick uint64) int64 {
	return roundID*1_000_003 + int64(tick)
}

func copyTiles(in []model.Tile) []model.Tile {
	out := make([]model.Tile, len(in))
	copy(out, in)
	return out
}
