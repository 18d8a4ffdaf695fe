package genetic

import (
	"math"
	"math/rand"
	"testing"
)

// intChromosome is a minimal Chromosome used to test the Algorithm loop in
// isolation, independent of the trading domain.
type intChromosome struct {
	genes []int
}

func (c *intChromosome) Len() int { return len(c.genes) }

func (c *intChromosome) Cross(other Chromosome, i int) {
	o := other.(*intChromosome)
	c.genes[i], o.genes[i] = o.genes[i], c.genes[i]
}

func (c *intChromosome) Mutate(rng *rand.Rand, i int) {
	c.genes[i] = rng.Intn(100)
}

func (c *intChromosome) Clone() Chromosome {
	return cloneInt(c)
}

func cloneInt(c *intChromosome) *intChromosome {
	genes := make([]int, len(c.genes))
	copy(genes, c.genes)
	return &intChromosome{genes: genes}
}

func sumGenes(c *intChromosome) float64 {
	total := 0
	for _, g := range c.genes {
		total += g
	}
	return float64(total)
}

func TestAlgorithmConvergesTowardHigherFitness(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 30
	seed := func(rng *rand.Rand) *intChromosome {
		return &intChromosome{genes: []int{rng.Intn(100), rng.Intn(100), rng.Intn(100)}}
	}
	evaluate := func(c *intChromosome) float64 { return sumGenes(c) }

	algo := New(cfg, seed, evaluate, 42)
	gen := algo.InitialGeneration()
	firstBest := gen.Best().Fitness

	for i := 0; i < 20; i++ {
		gen = algo.Next(gen)
	}
	lastBest := gen.Best().Fitness

	if lastBest < firstBest {
		t.Errorf("best fitness regressed: first=%v last=%v", firstBest, lastBest)
	}
	if lastBest < 250 {
		t.Errorf("expected near-maximal fitness after 20 generations, got %v", lastBest)
	}
}

func TestHallOfFameTracksBestAcrossGenerations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 10
	cfg.HallOfFameSize = 3
	seed := func(rng *rand.Rand) *intChromosome {
		return &intChromosome{genes: []int{rng.Intn(100)}}
	}
	evaluate := func(c *intChromosome) float64 { return sumGenes(c) }

	algo := New(cfg, seed, evaluate, 7)
	gen := algo.InitialGeneration()
	for i := 0; i < 5; i++ {
		gen = algo.Next(gen)
	}

	hof := algo.HallOfFame()
	if len(hof) != 3 {
		t.Fatalf("HallOfFame length = %d, want 3", len(hof))
	}
	for i := 1; i < len(hof); i++ {
		if hof[i].Fitness > hof[i-1].Fitness {
			t.Errorf("hall of fame not sorted best-first at index %d", i)
		}
	}
}

func TestSortDescendingTreatsNaNAsNeverBetter(t *testing.T) {
	individuals := []Individual[*intChromosome]{
		{Chromosome: &intChromosome{genes: []int{0}}, Fitness: math.NaN()},
		{Chromosome: &intChromosome{genes: []int{1}}, Fitness: 5},
		{Chromosome: &intChromosome{genes: []int{2}}, Fitness: 1},
	}
	sortDescending(individuals)

	if individuals[0].Fitness != 5 {
		t.Fatalf("best fitness = %v, want 5 (NaN must not outrank a finite fitness)", individuals[0].Fitness)
	}
	if !math.IsNaN(individuals[len(individuals)-1].Fitness) {
		t.Fatalf("NaN fitness ended at rank %d, want last", len(individuals)-1)
	}
}

func TestHallOfFameDropsNaNFitnessIndividual(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 4
	cfg.HallOfFameSize = 2
	seed := func(rng *rand.Rand) *intChromosome {
		return &intChromosome{genes: []int{rng.Intn(100)}}
	}
	algo := New(cfg, seed, sumGenes, 11)
	gen := algo.InitialGeneration()

	// Lodge a NaN-fitness individual at rank 0, as if an evaluator had
	// produced a non-finite score, then feed it through updateHallOfFame.
	nanIndividual := Individual[*intChromosome]{Chromosome: &intChromosome{genes: []int{0}}, Fitness: math.NaN()}
	candidates := append([]Individual[*intChromosome]{nanIndividual}, gen.Individuals...)
	algo.updateHallOfFame(candidates)

	for _, ind := range algo.HallOfFame() {
		if math.IsNaN(ind.Fitness) {
			t.Fatalf("NaN individual kept in the hall of fame ahead of finite fitnesses")
		}
	}
}

func TestCloneHelperProducesIndependentGenes(t *testing.T) {
	c := &intChromosome{genes: []int{1, 2, 3}}
	clone := cloneInt(c)
	clone.genes[0] = 99
	if c.genes[0] == 99 {
		t.Error("clone shares backing array with original")
	}
}
