package genetic

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestHallOfFamePropertyBestFitnessNeverDecreases checks the invariant a
// caller (internal/httpapi's optimize pipeline) relies on: running one more
// generation can only raise or hold the hall of fame's best recorded
// fitness, never lower it, across arbitrary RNG seeds and population sizes.
func TestHallOfFamePropertyBestFitnessNeverDecreases(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("hall of fame best fitness is monotone non-decreasing", prop.ForAll(
		func(rngSeed int64, populationSize, numGenerations int) bool {
			cfg := DefaultConfig()
			cfg.PopulationSize = populationSize
			cfg.HallOfFameSize = 3

			seedFn := func(rng *rand.Rand) *intChromosome {
				return &intChromosome{genes: []int{rng.Intn(100), rng.Intn(100)}}
			}
			algo := New(cfg, seedFn, sumGenes, rngSeed)

			gen := algo.InitialGeneration()
			best := algo.HallOfFame()[0].Fitness

			for i := 0; i < numGenerations; i++ {
				gen = algo.Next(gen)
				current := algo.HallOfFame()[0].Fitness
				if current < best {
					return false
				}
				best = current
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
		gen.IntRange(4, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
