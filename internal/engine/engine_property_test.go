package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"consensus-trader/internal/models"
)

// voteStep encodes one tick's price and the three producers' votes.
type voteStep struct {
	price float64
	votes [3]models.Direction
}

func genVoteStep() gopter.Gen {
	direction := gen.OneConstOf(models.DirectionNone, models.DirectionBuy, models.DirectionSell)
	return gopter.CombineGens(
		gen.Float64Range(1, 1000),
		direction, direction, direction,
	).Map(func(values []interface{}) voteStep {
		return voteStep{
			price: values[0].(float64),
			votes: [3]models.Direction{
				values[1].(models.Direction),
				values[2].(models.Direction),
				values[3].(models.Direction),
			},
		}
	})
}

func runScriptedEngine(t *testing.T, steps []voteStep) *Engine {
	t.Helper()
	scripts := make([][]models.Direction, 3)
	for _, s := range steps {
		for i := 0; i < 3; i++ {
			scripts[i] = append(scripts[i], s.votes[i])
		}
	}
	producers := scriptedSet("X", scripts[0], scripts[1], scripts[2])
	e := newTestEngine(t, producers, 100000, 0.02)
	for i, s := range steps {
		e.OnTick(testTick("X", s.price, i))
	}
	e.Finalize()
	return e
}

// Property: for any tick sequence, realized plus unrealized PnL equals
// portfolio value minus initial capital.
func TestProperty_Conservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("realized+unrealized equals value minus capital", prop.ForAll(
		func(steps []voteStep) bool {
			e := runScriptedEngine(t, steps)
			ledger := e.Ledger()

			lhs := ledger.RealizedPnL() + ledger.UnrealizedPnL()
			rhs := ledger.PortfolioValue() - ledger.InitialCapital()
			scale := math.Max(1, math.Abs(rhs))
			if math.Abs(lhs-rhs) > 1e-6*scale {
				t.Logf("FAILED: lhs=%v rhs=%v steps=%d", lhs, rhs, len(steps))
				return false
			}
			return true
		},
		gen.SliceOf(genVoteStep()),
	))

	properties.TestingRun(t)
}

// Property: a buy that opens or extends a long never drives cash negative.
func TestProperty_BuysNeverOverspend(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("cash stays non-negative through long opens", prop.ForAll(
		func(steps []voteStep) bool {
			e := runScriptedEngine(t, steps)

			// Replay the trade log against a fresh cash balance.
			cash := e.Ledger().InitialCapital()
			for _, trade := range e.Ledger().Trades() {
				if trade.Side == models.SideBuy {
					cash -= float64(trade.Quantity) * trade.Price
				} else {
					cash += float64(trade.Quantity) * trade.Price
				}
				if trade.Side == models.SideBuy && trade.RealizedPnL == 0 && cash < -1e-9 {
					t.Logf("FAILED: cash %v after buy %+v", cash, trade)
					return false
				}
			}
			return true
		},
		gen.SliceOf(genVoteStep()),
	))

	properties.TestingRun(t)
}

// Property: replaying the same tick sequence with fresh producer state yields
// an identical trade log and cash history.
func TestProperty_DeterministicReplay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("same input, same trade log", prop.ForAll(
		func(steps []voteStep) bool {
			first := runScriptedEngine(t, steps)
			second := runScriptedEngine(t, steps)

			if !reflect.DeepEqual(first.Ledger().Trades(), second.Ledger().Trades()) {
				t.Log("FAILED: trade logs diverge on replay")
				return false
			}
			if !reflect.DeepEqual(first.Ledger().History(), second.Ledger().History()) {
				t.Log("FAILED: cash histories diverge on replay")
				return false
			}
			return true
		},
		gen.SliceOf(genVoteStep()),
	))

	properties.TestingRun(t)
}

// Property: quantity is always a positive whole number of units and entry
// price exists exactly for open symbols.
func TestProperty_LedgerStateConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("trade quantities positive, entry iff open", prop.ForAll(
		func(steps []voteStep) bool {
			e := runScriptedEngine(t, steps)
			snap := e.Ledger().Snapshot()

			for _, trade := range snap.Trades {
				if trade.Quantity <= 0 {
					t.Logf("FAILED: non-positive quantity %+v", trade)
					return false
				}
			}
			for symbol, qty := range snap.Positions {
				_, hasEntry := snap.EntryPrice[symbol]
				if (qty != 0) != hasEntry {
					t.Logf("FAILED: position %d, entry present %v", qty, hasEntry)
					return false
				}
			}
			return true
		},
		gen.SliceOf(genVoteStep()),
	))

	properties.TestingRun(t)
}
